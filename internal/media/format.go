package media

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// FormatFileSize renders bytes as "0 Bytes", "512 Bytes", "1.5 KB", "2 MB"...
// with at most two decimals.
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	sizes := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	v := math.Round(float64(bytes)/math.Pow(1024, float64(i))*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizes[i]
}

// FormatDuration renders d as m:ss, or "--:--" when the duration is unknown.
func FormatDuration(d time.Duration, known bool) string {
	if !known || d <= 0 {
		return "--:--"
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
