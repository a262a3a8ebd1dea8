package filestorage

import (
	"fmt"
	"time"
)

// timestampLayout - YYYY-MM-DD_HH-MM-SS
const timestampLayout = "2006-01-02_15-04-05"

// FormatFilenameWithTimestamp строит имя вида <prefix>-<YYYY-MM-DD_HH-MM-SS><ext>.
// Проверки на коллизии нет: два запуска в одну секунду дают одно и то же имя
func FormatFilenameWithTimestamp(prefix, fileExt string, t time.Time) string {
	return fmt.Sprintf("%s-%s%s", prefix, t.Format(timestampLayout), fileExt)
}
