// Package notify sends a summary of every pipeline run.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/jordan-wright/email"
)

type Smtp struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

func (s Smtp) Enabled() bool {
	return s.Server != "" && s.EmailAddress != "" && len(s.To) > 0
}

type SourceSummary struct {
	Source       string
	Ok           bool
	CitiesOK     int
	CitiesFailed int
	Movies       int
	Showtimes    int
}

type Summary struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Sources  []SourceSummary

	Documents        int
	MoviesMerged     int
	ShowtimesAdded   int64
	EntriesSkipped   int
	MoviesRetired    int
	TheatresRetired  int64
	PostersRemoved   int
	ReconcileSkipped bool

	Err error
}

func (s Summary) Subject() string {
	status := "ok"
	if s.Err != nil {
		status = "failed"
	}
	return fmt.Sprintf("showtimes run %s: %s", s.RunID, status)
}

// Text renders the summary as a plain text report.
func (s Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", s.RunID)
	fmt.Fprintf(&b, "started %s, took %s\n\n", s.Started.Format(time.RFC1123), s.Finished.Sub(s.Started).Round(time.Second))

	for _, src := range s.Sources {
		status := "ok"
		if !src.Ok {
			status = "FAILED"
		}
		fmt.Fprintf(
			&b, "%-12s %-6s cities %d ok / %d failed, %d movies, %d showtimes\n",
			src.Source, status, src.CitiesOK, src.CitiesFailed, src.Movies, src.Showtimes,
		)
	}

	fmt.Fprintf(&b, "\nmerged %d documents: %d movies, %d new showtimes, %d entries skipped\n",
		s.Documents, s.MoviesMerged, s.ShowtimesAdded, s.EntriesSkipped)
	if s.ReconcileSkipped {
		b.WriteString("reconciliation skipped\n")
	} else {
		fmt.Fprintf(&b, "retired %d movies, %d theatres, %d posters\n",
			s.MoviesRetired, s.TheatresRetired, s.PostersRemoved)
	}
	if s.Err != nil {
		fmt.Fprintf(&b, "\nerror: %s\n", s.Err.Error())
	}
	return b.String()
}

type Notifier interface {
	Notify(ctx context.Context, summary Summary) error
}

// Nop discards every summary.
type Nop struct{}

func (Nop) Notify(context.Context, Summary) error {
	return nil
}

// Email mails the summary to the configured recipients.
type Email struct {
	smtp Smtp
}

func NewEmail(config Smtp) Email {
	return Email{smtp: config}
}

// New returns an Email notifier if smtp is configured and Nop otherwise.
func New(config Smtp) Notifier {
	if !config.Enabled() {
		return Nop{}
	}
	return NewEmail(config)
}

func (e Email) Notify(ctx context.Context, summary Summary) error {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Showtimes <%s>", e.smtp.EmailAddress)
	mail.To = e.smtp.To
	mail.Subject = summary.Subject()
	mail.Text = []byte(summary.Text())

	addr := fmt.Sprintf("%s:%d", e.smtp.Server, e.smtp.Port)
	err := mail.Send(addr, smtp.PlainAuth("", e.smtp.EmailAddress, e.smtp.Password, e.smtp.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		return fmt.Errorf("send run summary: %w", err)
	}
	return nil
}
