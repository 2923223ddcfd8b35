package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/amuthap/wedding-automation/internal/bot"
)

// send-test: push one image to one number to check gateway credentials.
func sendTestCmd() *cobra.Command {
	var (
		to       string
		imageURL string
		caption  string
	)
	cmd := &cobra.Command{
		Use:   "send-test",
		Short: "Send a single test image to one WhatsApp number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Gateway.APIKey == "" || cfg.Gateway.Sender == "" {
				return errors.New("missing GATEWAY_API_KEY or GATEWAY_SENDER")
			}
			b, err := bot.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			log := logrus.WithFields(logrus.Fields{
				"to":     b.IndividualNumber(to),
				"sender": cfg.Gateway.Sender,
			})
			log.Info("Sending test message")
			if err := b.SendToIndividual(context.Background(), to, imageURL, caption); err != nil {
				return fmt.Errorf("failed to send message: %w", err)
			}
			log.Info("Test message sent")
			fmt.Fprintf(cmd.OutOrStdout(), "send-test completed: sent to %s\n", b.IndividualNumber(to))
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient phone number")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "public URL of the image to send")
	cmd.Flags().StringVar(&caption, "caption", "Test message from the greetings bot", "message caption")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("image-url")
	return cmd
}
