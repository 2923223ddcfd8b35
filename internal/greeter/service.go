package greeter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amuthap/wedding-automation/internal/bot"
	"github.com/amuthap/wedding-automation/internal/composer"
	"github.com/amuthap/wedding-automation/internal/config"
	"github.com/amuthap/wedding-automation/internal/models"
	"github.com/amuthap/wedding-automation/internal/roster"
	"github.com/amuthap/wedding-automation/internal/upload"
)

// Service wires the configured composer, uploader and gateway together.
type Service struct {
	cfg      *config.Config
	composer *composer.Composer
	uploader *upload.Client
	bot      *bot.WhatsAppBot
}

// NewService validates cfg and loads fonts. It fails on anything that would
// make every row fail.
func NewService(cfg *config.Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	c, err := composer.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	b, err := bot.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	u := upload.NewClient(cfg.Upload.URL, cfg.Upload.APIKey, &http.Client{Timeout: cfg.Upload.Timeout.Duration})
	return &Service{cfg: cfg, composer: c, uploader: u, bot: b}, nil
}

func (s *Service) Composer() *composer.Composer { return s.composer }

func (s *Service) Bot() *bot.WhatsAppBot { return s.bot }

// RunOccasion loads the occasion's roster and greets everyone whose date is
// today. Roster, template and publishing-config problems abort the pass;
// everything else is reported in the Summary.
func (s *Service) RunOccasion(ctx context.Context, name string, today time.Time, dryRun bool) (*Summary, error) {
	occ, err := s.cfg.Occasion(name)
	if err != nil {
		return nil, err
	}
	if !dryRun {
		if err := s.cfg.ValidatePublishing(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}

	rows, err := roster.Load(occ.Roster)
	if err != nil {
		return nil, err
	}
	if err := s.composer.EnsureOutputDir(); err != nil {
		return nil, err
	}
	if err := s.composer.CheckTemplate(); err != nil {
		return nil, err
	}

	runner, err := NewRunner(s.composer, s.uploader, s.bot, Options{
		Occasion: models.Occasion{
			Name:         name,
			Roster:       occ.Roster,
			Suffix:       occ.Suffix,
			DMCaption:    occ.DMCaption,
			GroupCaption: occ.GroupCaption,
		},
		Groups:     s.cfg.Gateway.Groups,
		IgnoreYear: s.cfg.Roster.IgnoreYear,
		DryRun:     dryRun,
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"roster": occ.Roster,
		"rows":   len(rows),
	}).Debug("Roster loaded")
	return runner.Run(ctx, today, rows), nil
}
