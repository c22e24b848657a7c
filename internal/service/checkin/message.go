package checkin

import (
	"fmt"
	"strings"

	"github.com/cmlabs-hris/linebot-hrm/internal/domain/checkin"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/hrapi"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/line"
)

const (
	colorRegistered   = "#06C755"
	colorUnregistered = "#FF9800"
	hrDivider         = "━━━━━━━━━━━━━━━━━━━━"
)

func headline(event checkin.Event) string {
	if event.Status == checkin.StatusUnregistered {
		if event.CheckinType == checkin.TypeOut {
			return "⚠️ เช็คเอาท์สำเร็จ แต่ยังไม่ได้ลงทะเบียนพนักงาน!"
		}
		return "⚠️ เช็คอินสำเร็จ แต่ยังไม่ได้ลงทะเบียนพนักงาน!"
	}
	if event.CheckinType == checkin.TypeOut {
		return "✅ เช็คเอาท์สำเร็จ!"
	}
	return "✅ เช็คอินสำเร็จ!"
}

func photoMark(hasPhoto bool) string {
	if hasPhoto {
		return "✅ มี"
	}
	return "❌ ไม่มี"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// summaryText is the confirmation pushed to the user after a check-in or
// check-out.
func summaryText(event checkin.Event) string {
	var b strings.Builder
	b.WriteString(headline(event) + "\n\n")

	if event.Status == checkin.StatusUnregistered {
		fmt.Fprintf(&b, "👤 ชื่อ: %s\n", event.DisplayName)
		if code := deref(event.EmployeeCode); code != "" {
			fmt.Fprintf(&b, "🆔 รหัสพนักงาน: %s\n", code)
			if event.HRSystemVerified {
				b.WriteString("✅ ยืนยันจากระบบ HR: สำเร็จ\n")
			} else {
				b.WriteString("⚠️ ยืนยันจากระบบ HR: ไม่สำเร็จ\n")
			}
		}
		fmt.Fprintf(&b, "📍 ตำแหน่ง: %s\n", event.Address)
		fmt.Fprintf(&b, "🕐 เวลา: %s\n", event.LocalTime)
		fmt.Fprintf(&b, "📷 รูปถ่าย: %s\n", photoMark(event.HasPhoto))
		fmt.Fprintf(&b, "🎯 GPS: %.6f, %.6f\n", event.Latitude, event.Longitude)
		fmt.Fprintf(&b, "📡 ความแม่นยำ: %.0f เมตร\n\n", event.Accuracy)
		b.WriteString("📝 กรุณาติดต่อ HR เพื่อลงทะเบียน")
		return b.String()
	}

	fmt.Fprintf(&b, "👤 ชื่อ: %s\n", event.EmployeeName)
	fmt.Fprintf(&b, "🆔 รหัสพนักงาน: %s\n", deref(event.EmployeeCode))
	fmt.Fprintf(&b, "🏢 แผนก: %s\n", deref(event.Department))
	fmt.Fprintf(&b, "💼 ตำแหน่ง: %s\n", deref(event.Position))

	if event.HRSystemVerified && event.HRSystemData != nil {
		b.WriteString("\n✅ ยืนยันจากระบบ HR: สำเร็จ\n")
		b.WriteString(hrDivider + "\n")
		b.WriteString("📋 ข้อมูลจากระบบ HR:\n")
		writeHRData(&b, *event.HRSystemData)
		b.WriteString(hrDivider + "\n")
	} else {
		b.WriteString("\n⚠️ ยืนยันจากระบบ HR: ไม่สำเร็จ\n")
	}

	fmt.Fprintf(&b, "\n📍 สถานที่: %s\n", event.Address)
	fmt.Fprintf(&b, "🕐 เวลา: %s\n", event.LocalTime)
	if tr := event.TimeRecord; tr != nil && tr.Synced && tr.TotalTime != "" {
		fmt.Fprintf(&b, "⏱️ เวลาทำงาน: %s ชั่วโมง (%s - %s)\n", tr.TotalTime, tr.StartTime, tr.EndTime)
	}
	fmt.Fprintf(&b, "📷 รูปถ่าย: %s\n", photoMark(event.HasPhoto))
	fmt.Fprintf(&b, "🎯 GPS: %.6f, %.6f\n", event.Latitude, event.Longitude)
	fmt.Fprintf(&b, "📡 ความแม่นยำ: %.0f เมตร\n", event.Accuracy)
	b.WriteString("💾 บันทึกข้อมูล: ✅ สำเร็จ")
	return b.String()
}

func writeHRData(b *strings.Builder, hr hrapi.Employee) {
	if name := hr.FullName(); name != "" {
		fmt.Fprintf(b, "  ชื่อ-นามสกุล: %s\n", name)
	}
	fields := []struct {
		label string
		key   string
		unit  string
	}{
		{"ชื่อเล่น", "nickName", ""},
		{"ตำแหน่ง", "position", ""},
		{"แผนก", "department", ""},
		{"สถานที่ทำงาน", "workplace", ""},
		{"ประเภทงาน", "jobtype", ""},
		{"วันเริ่มงาน", "startjob", ""},
		{"เงินเดือน", "salary", " บาท"},
		{"เบอร์โทร", "phoneNumber", ""},
		{"LINE ID", "idLine", ""},
	}
	for _, f := range fields {
		if v := hr.Field(f.key); v != "" {
			fmt.Fprintf(b, "  %s: %s%s\n", f.label, v, f.unit)
		}
	}
}

// summaryCard is the flex version of the confirmation.
func summaryCard(event checkin.Event) line.Bubble {
	color := colorRegistered
	name := event.EmployeeName
	if event.Status == checkin.StatusUnregistered {
		color = colorUnregistered
		name = event.DisplayName
	}

	rows := []line.CardRow{
		{Label: "ชื่อ", Value: name},
		{Label: "รหัสพนักงาน", Value: deref(event.EmployeeCode)},
		{Label: "แผนก", Value: deref(event.Department)},
		{Label: "สถานที่", Value: event.Address},
		{Label: "เวลา", Value: event.LocalTime},
		{Label: "GPS", Value: fmt.Sprintf("%.6f, %.6f", event.Latitude, event.Longitude)},
	}
	if tr := event.TimeRecord; tr != nil && tr.Synced && tr.TotalTime != "" {
		rows = append(rows, line.CardRow{Label: "เวลาทำงาน", Value: tr.TotalTime + " ชั่วโมง"})
	}
	return line.NewCard(headline(event), color, rows)
}

// confirmationMessages returns the optional photo, the text summary and a
// card whose alt text is the summary.
func confirmationMessages(event checkin.Event) []line.Message {
	var messages []line.Message
	if event.PhotoURL != "" {
		messages = append(messages, line.NewImageMessage(event.PhotoURL))
	}
	summary := summaryText(event)
	messages = append(messages,
		line.NewTextMessage(summary),
		line.NewFlexMessage(summary, summaryCard(event)),
	)
	return messages
}
