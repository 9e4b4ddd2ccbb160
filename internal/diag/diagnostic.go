package diag

import (
	"strconv"

	"hbind/internal/source"
)

type Note struct {
	Loc source.Loc
	Msg string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Subject  string
	Message  string
	Primary  source.Loc
	Cause    error
	Notes    []Note
}

func New(sev Severity, code Code, subject string, primary source.Loc, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Subject:  subject,
		Primary:  primary,
		Message:  msg,
	}
}

func (d Diagnostic) WithNote(loc source.Loc, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Loc: loc, Msg: msg})
	return d
}

func (d Diagnostic) WithCause(err error) Diagnostic {
	d.Cause = err
	return d
}

// Text renders "subject: message" for plain output.
func (d Diagnostic) Text() string {
	if d.Subject == "" {
		return d.Message
	}
	return d.Subject + ": " + d.Message
}

// Fingerprint identifies a diagnostic for deduplication: code, severity,
// subject, location and message. Notes and cause are not part of it.
func (d Diagnostic) Fingerprint() string {
	return d.Code.ID() + "|" + d.Severity.String() + "|" + d.Subject + "|" +
		strconv.FormatUint(uint64(d.Primary.File), 10) + ":" +
		strconv.FormatUint(uint64(d.Primary.Line), 10) + ":" +
		strconv.FormatUint(uint64(d.Primary.Col), 10) + "|" + d.Message
}
