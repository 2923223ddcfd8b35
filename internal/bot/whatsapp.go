package bot

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/amuthap/wedding-automation/internal/config"
	"github.com/amuthap/wedding-automation/internal/models"
	"github.com/amuthap/wedding-automation/internal/roster"
)

// WhatsAppBot sends media messages through a WhatsApp gateway that accepts
// form posts.
type WhatsAppBot struct {
	apiURL      string
	apiKey      string
	sender      string
	countryCode string
	groupSuffix string
	client      *http.Client
	pacer       Pacer
}

type Options struct {
	APIURL      string
	APIKey      string
	Sender      string
	CountryCode string
	GroupSuffix string
	Client      *http.Client
	Pacer       Pacer
}

// GroupResult is the outcome of one group dispatch.
type GroupResult struct {
	GroupID string
	Err     error
}

func NewWhatsAppBot(opts Options) *WhatsAppBot {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Pacer == nil {
		opts.Pacer = NoPacer{}
	}
	return &WhatsAppBot{
		apiURL:      opts.APIURL,
		apiKey:      opts.APIKey,
		sender:      opts.Sender,
		countryCode: opts.CountryCode,
		groupSuffix: opts.GroupSuffix,
		client:      opts.Client,
		pacer:       opts.Pacer,
	}
}

// NewFromConfig builds a bot from the gateway and pacing sections.
func NewFromConfig(cfg *config.Config) (*WhatsAppBot, error) {
	pacer, err := NewPacer(cfg.Pacing)
	if err != nil {
		return nil, err
	}
	return NewWhatsAppBot(Options{
		APIURL:      cfg.Gateway.URL,
		APIKey:      cfg.Gateway.APIKey,
		Sender:      cfg.Gateway.Sender,
		CountryCode: cfg.Gateway.CountryCode,
		GroupSuffix: cfg.Gateway.GroupSuffix,
		Client:      &http.Client{Timeout: cfg.Gateway.Timeout.Duration},
		Pacer:       pacer,
	}), nil
}

// IndividualNumber is the gateway address of a member phone number.
func (w *WhatsAppBot) IndividualNumber(phone string) string {
	return w.countryCode + roster.DigitsOnly(phone)
}

// GroupAddress is the gateway address of a group chat ID.
func (w *WhatsAppBot) GroupAddress(groupID string) string {
	return groupID + w.groupSuffix
}

// SendToIndividual sends the image to a member's number.
func (w *WhatsAppBot) SendToIndividual(ctx context.Context, phone, imageURL, caption string) error {
	if roster.DigitsOnly(phone) == "" {
		return fmt.Errorf("no digits in phone number %q", phone)
	}
	return w.SendMedia(ctx, models.PublishRecord{
		ImageURL:  imageURL,
		Caption:   caption,
		Recipient: w.IndividualNumber(phone),
	})
}

// SendToGroups sends the image to every group in order, pacing between
// dispatches. A failed group does not stop the rest; each outcome is
// returned and logged.
func (w *WhatsAppBot) SendToGroups(ctx context.Context, groupIDs []string, imageURL, caption string) []GroupResult {
	results := make([]GroupResult, 0, len(groupIDs))
	for i, gid := range groupIDs {
		if i > 0 {
			if err := w.pacer.Wait(ctx); err != nil {
				logrus.WithError(err).WithField("group_id", gid).Error("Pacing wait failed, group skipped")
				results = append(results, GroupResult{GroupID: gid, Err: err})
				continue
			}
		}
		err := w.SendMedia(ctx, models.PublishRecord{
			ImageURL:  imageURL,
			Caption:   caption,
			Recipient: w.GroupAddress(gid),
			Group:     true,
		})
		if err != nil {
			logrus.WithError(err).WithField("group_id", gid).Error("Group send failed")
		} else {
			logrus.WithField("group_id", gid).Info("Group send succeeded")
		}
		results = append(results, GroupResult{GroupID: gid, Err: err})
	}
	return results
}

// SendMedia posts one image message to the gateway.
func (w *WhatsAppBot) SendMedia(ctx context.Context, rec models.PublishRecord) error {
	form := url.Values{
		"api_key":    {w.apiKey},
		"sender":     {w.sender},
		"number":     {rec.Recipient},
		"media_type": {"image"},
		"caption":    {rec.Caption},
		"url":        {rec.ImageURL},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		logrus.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"recipient":   rec.Recipient,
		}).Debug("Gateway rejected media message")
		return fmt.Errorf("failed to send message to %s, status: %d", rec.Recipient, resp.StatusCode)
	}

	logrus.WithField("recipient", rec.Recipient).Debug("WhatsApp media message sent successfully")
	return nil
}
