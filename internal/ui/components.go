package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/olivier-w/stardrift/internal/driver"
)

func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h, m, s := total/3600, total/60%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func hudField(label, value string) string {
	return hudLabelStyle.Render(label) + " " + hudValueStyle.Render(value)
}

func renderHUD(st driver.Stats, fps float64, stars int, uptime time.Duration, status string) string {
	parts := []string{
		hudField("fps", fmt.Sprintf("%.1f", fps)),
		hudField("stars", fmt.Sprintf("%d", stars)),
		hudField("fading", fmt.Sprintf("%d", st.Fading)),
		hudField("scroll", fmt.Sprintf("%.0f", st.Scroll)),
		hudField("seed", st.Strategy.String()),
		hudField("up", formatUptime(uptime)),
	}
	line := strings.Join(parts, "  ")
	if status != "" {
		return line + "  " + statusStyle.Render(status)
	}
	return line + "  " + helpStyle.Render(helpText())
}
