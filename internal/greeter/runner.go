// Package greeter runs one greeting pass over a roster: match, compose,
// upload, send. Every stage failure is recorded and logged and the pass
// moves on to the next row.
package greeter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/amuthap/wedding-automation/internal/bot"
	"github.com/amuthap/wedding-automation/internal/composer"
	"github.com/amuthap/wedding-automation/internal/models"
	"github.com/amuthap/wedding-automation/internal/roster"
)

type Composer interface {
	ResolvePhoto(ctx context.Context, row models.RosterRow) (string, error)
	ComposeFrom(row models.RosterRow, photoPath, suffix string) (*models.Composition, error)
}

type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

type Sender interface {
	SendToIndividual(ctx context.Context, phone, imageURL, caption string) error
	SendToGroups(ctx context.Context, groupIDs []string, imageURL, caption string) []bot.GroupResult
}

type Options struct {
	Occasion   models.Occasion
	Groups     []string
	IgnoreYear bool
	// DryRun composes images but skips upload and sending.
	DryRun bool
}

type Runner struct {
	composer Composer
	uploader Uploader
	sender   Sender
	opts     Options
	dm       *template.Template
	group    *template.Template
}

// RowResult is the outcome of one matched row.
type RowResult struct {
	Member     string     `json:"member"`
	OutputPath string     `json:"output_path,omitempty"`
	ImageURL   string     `json:"image_url,omitempty"`
	DMSent     bool       `json:"dm_sent"`
	GroupsSent int        `json:"groups_sent"`
	Failures   []*Failure `json:"failures,omitempty"`
}

func (r *RowResult) fail(kind FailureKind, recipient string, err error) *Failure {
	f := &Failure{Kind: kind, Member: r.Member, Recipient: recipient, Message: err.Error(), Err: err}
	r.Failures = append(r.Failures, f)
	return f
}

// Summary describes a whole pass.
type Summary struct {
	RunID    string      `json:"run_id"`
	Occasion string      `json:"occasion"`
	Date     string      `json:"date"`
	DryRun   bool        `json:"dry_run"`
	Total    int         `json:"total"`
	Matched  int         `json:"matched"`
	Composed int         `json:"composed"`
	Uploaded int         `json:"uploaded"`
	DMsSent  int         `json:"dms_sent"`
	Groups   int         `json:"group_sends"`
	Rows     []RowResult `json:"rows"`
}

// Failures returns every failure of the pass in row order.
func (s *Summary) Failures() []*Failure {
	var out []*Failure
	for _, r := range s.Rows {
		out = append(out, r.Failures...)
	}
	return out
}

func NewRunner(c Composer, u Uploader, s Sender, opts Options) (*Runner, error) {
	dm, err := template.New("dm").Parse(opts.Occasion.DMCaption)
	if err != nil {
		return nil, fmt.Errorf("parse dm caption: %w", err)
	}
	group, err := template.New("group").Parse(opts.Occasion.GroupCaption)
	if err != nil {
		return nil, fmt.Errorf("parse group caption: %w", err)
	}
	if !opts.DryRun && (u == nil || s == nil) {
		return nil, errors.New("uploader and sender are required unless dry run")
	}
	return &Runner{composer: c, uploader: u, sender: s, opts: opts, dm: dm, group: group}, nil
}

// Run processes rows in order. Rows whose date is not today are skipped.
func (r *Runner) Run(ctx context.Context, today time.Time, rows []models.RosterRow) *Summary {
	sum := &Summary{
		RunID:    uuid.NewString(),
		Occasion: r.opts.Occasion.Name,
		Date:     roster.FormatDate(today),
		DryRun:   r.opts.DryRun,
		Total:    len(rows),
	}
	log := logrus.WithFields(logrus.Fields{"run_id": sum.RunID, "occasion": sum.Occasion})
	log.WithField("date", sum.Date).Info("Looking for matching members")

	matcher := roster.Matcher{Today: today, IgnoreYear: r.opts.IgnoreYear}
	for _, row := range rows {
		if !matcher.Match(row.Date) {
			continue
		}
		sum.Matched++
		res := r.processRow(ctx, log.WithField("member", row.Name), row)
		if res.OutputPath != "" {
			sum.Composed++
		}
		if res.ImageURL != "" {
			sum.Uploaded++
		}
		if res.DMSent {
			sum.DMsSent++
		}
		sum.Groups += res.GroupsSent
		sum.Rows = append(sum.Rows, res)
	}

	log.WithFields(logrus.Fields{
		"matched":  sum.Matched,
		"composed": sum.Composed,
		"uploaded": sum.Uploaded,
		"failures": len(sum.Failures()),
	}).Info("All done")
	return sum
}

func (r *Runner) processRow(ctx context.Context, log *logrus.Entry, row models.RosterRow) RowResult {
	res := RowResult{Member: row.Name}

	photo, err := r.composer.ResolvePhoto(ctx, row)
	if err != nil {
		log.WithError(res.fail(DownloadFailure, "", err)).Warn("Image download failed, using fallback")
	}

	comp, err := r.composer.ComposeFrom(row, photo, r.opts.Occasion.Suffix)
	if err != nil {
		kind := DecodeFailure
		if errors.Is(err, composer.ErrSave) {
			kind = SaveFailure
		}
		log.WithError(res.fail(kind, "", err)).Error("Failed to compose greeting")
		return res
	}
	res.OutputPath = comp.Path
	log.WithField("path", comp.Path).Info("Created greeting image")

	if r.opts.DryRun {
		return res
	}

	imageURL, err := r.uploader.Upload(ctx, comp.Path)
	if err != nil {
		log.WithError(res.fail(UploadFailure, "", err)).Error("Upload failed")
		return res
	}
	res.ImageURL = imageURL

	if number := roster.ContactNumber(row); number == "" {
		log.Warn("No WhatsApp/Phone number, skipping DM")
	} else if err := r.sendDM(ctx, row, number, imageURL); err != nil {
		log.WithError(res.fail(SendFailure, number, err)).Error("DM failed")
	} else {
		res.DMSent = true
		log.Info("WhatsApp DM sent")
	}

	if len(r.opts.Groups) == 0 {
		return res
	}
	caption, err := execute(r.group, row)
	if err != nil {
		log.WithError(res.fail(SendFailure, "groups", err)).Error("Group caption failed")
		return res
	}
	for _, gr := range r.sender.SendToGroups(ctx, r.opts.Groups, imageURL, caption) {
		if gr.Err != nil {
			res.fail(SendFailure, gr.GroupID, gr.Err)
			continue
		}
		res.GroupsSent++
	}
	return res
}

func (r *Runner) sendDM(ctx context.Context, row models.RosterRow, number, imageURL string) error {
	caption, err := execute(r.dm, row)
	if err != nil {
		return err
	}
	return r.sender.SendToIndividual(ctx, number, imageURL, caption)
}

func execute(t *template.Template, row models.RosterRow) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, row); err != nil {
		return "", fmt.Errorf("render %s caption: %w", t.Name(), err)
	}
	return buf.String(), nil
}
