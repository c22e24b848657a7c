package line

import (
	"encoding/json"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Message is any LINE message object. Construct them with the New* helpers so
// the type discriminator is always set.
type Message interface {
	messageType() string
	toSDK() (messaging_api.MessageInterface, error)
}

type TextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (TextMessage) messageType() string { return "text" }

func (m TextMessage) toSDK() (messaging_api.MessageInterface, error) {
	return messaging_api.TextMessage{Text: m.Text}, nil
}

type ImageMessage struct {
	Type               string `json:"type"`
	OriginalContentURL string `json:"originalContentUrl"`
	PreviewImageURL    string `json:"previewImageUrl"`
}

func (ImageMessage) messageType() string { return "image" }

func (m ImageMessage) toSDK() (messaging_api.MessageInterface, error) {
	return messaging_api.ImageMessage{
		OriginalContentUrl: m.OriginalContentURL,
		PreviewImageUrl:    m.PreviewImageURL,
	}, nil
}

type FlexMessage struct {
	Type     string `json:"type"`
	AltText  string `json:"altText"`
	Contents Bubble `json:"contents"`
}

func (FlexMessage) messageType() string { return "flex" }

// toSDK hands the bubble to the SDK's own flex decoder.
func (m FlexMessage) toSDK() (messaging_api.MessageInterface, error) {
	raw, err := json.Marshal(m.Contents)
	if err != nil {
		return nil, err
	}
	contents, err := messaging_api.UnmarshalFlexContainer(raw)
	if err != nil {
		return nil, err
	}
	return messaging_api.FlexMessage{AltText: m.AltText, Contents: contents}, nil
}

func NewTextMessage(text string) TextMessage {
	return TextMessage{Type: "text", Text: text}
}

func NewImageMessage(url string) ImageMessage {
	return ImageMessage{Type: "image", OriginalContentURL: url, PreviewImageURL: url}
}

// LINE rejects alt text longer than 400 characters.
const maxAltText = 400

func NewFlexMessage(altText string, bubble Bubble) FlexMessage {
	r := []rune(altText)
	if len(r) > maxAltText {
		altText = string(r[:maxAltText-1]) + "…"
	}
	return FlexMessage{Type: "flex", AltText: altText, Contents: bubble}
}

// Bubble is the subset of the flex bubble container used for cards.
type Bubble struct {
	Type   string `json:"type"`
	Header *Box   `json:"header,omitempty"`
	Body   *Box   `json:"body,omitempty"`
	Footer *Box   `json:"footer,omitempty"`
}

type Box struct {
	Type     string      `json:"type"`
	Layout   string      `json:"layout"`
	Spacing  string      `json:"spacing,omitempty"`
	Contents []Component `json:"contents"`
}

// Component is a box or text node inside a bubble.
type Component struct {
	Type     string      `json:"type"`
	Layout   string      `json:"layout,omitempty"`
	Text     string      `json:"text,omitempty"`
	Size     string      `json:"size,omitempty"`
	Weight   string      `json:"weight,omitempty"`
	Color    string      `json:"color,omitempty"`
	Wrap     bool        `json:"wrap,omitempty"`
	Flex     *int        `json:"flex,omitempty"`
	Contents []Component `json:"contents,omitempty"`
}

// CardRow is one label/value line of a card.
type CardRow struct {
	Label string
	Value string
}

// NewCard builds a simple bubble with a bold title and label/value rows.
func NewCard(title string, titleColor string, rows []CardRow) Bubble {
	labelFlex, valueFlex := 2, 5
	body := make([]Component, 0, len(rows))
	for _, row := range rows {
		body = append(body, Component{
			Type:   "box",
			Layout: "baseline",
			Contents: []Component{
				{Type: "text", Text: row.Label, Size: "sm", Color: "#aaaaaa", Flex: &labelFlex},
				{Type: "text", Text: nonEmpty(row.Value), Size: "sm", Color: "#666666", Wrap: true, Flex: &valueFlex},
			},
		})
	}

	return Bubble{
		Type: "bubble",
		Header: &Box{
			Type:   "box",
			Layout: "vertical",
			Contents: []Component{
				{Type: "text", Text: title, Weight: "bold", Size: "lg", Color: titleColor, Wrap: true},
			},
		},
		Body: &Box{
			Type:     "box",
			Layout:   "vertical",
			Spacing:  "sm",
			Contents: body,
		},
	}
}

func nonEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
