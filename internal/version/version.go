package version

import "fmt"

// Заполняются через -ldflags "-X github.com/vladislavdragonenkov/shop/internal/version.version=...".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) { return version, commit, date }

func GetVersion() string { return version }
func GetCommit() string  { return commit }
func GetDate() string    { return date }

// String форматирует сведения о сборке для логов.
func String() string {
	return fmt.Sprintf("shop-service version=%s commit=%s date=%s", version, commit, date)
}
