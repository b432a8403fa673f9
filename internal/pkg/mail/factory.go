package mail

import "fmt"

// Driver names accepted by New.
const (
	DriverSMTP     = "smtp"
	DriverPostmark = "postmark"
)

// Config selects and configures a mail driver.
type Config struct {
	Driver   string
	SMTP     SMTPConfig
	Postmark PostmarkConfig
}

// New builds the Mail implementation named by cfg.Driver.
func New(cfg Config) (Mail, error) {
	switch cfg.Driver {
	case DriverSMTP, "":
		return NewSMTP(cfg.SMTP)
	case DriverPostmark:
		return NewPostmark(cfg.Postmark)
	default:
		return nil, fmt.Errorf("mail: unsupported driver %q", cfg.Driver)
	}
}
