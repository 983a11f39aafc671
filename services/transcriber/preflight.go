package transcriber

import (
	"context"
	"fmt"
	"time"

	"formfiller-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

// Preflight checks the portal is reachable before a browser session is
// spent on it. Auth-related status codes still count as reachable: the
// login page itself may answer 401/403 to an anonymous probe.
func Preflight(ctx context.Context, cfg Config) error {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Second * 15)
	telemetry.InstrumentResty(client, "transcriber-preflight")

	res, err := client.R().
		SetContext(ctx).
		Get(cfg.Login.Path)
	if err != nil {
		return fmt.Errorf("portal is unreachable at %s: %w", cfg.BaseURL, err)
	}
	if res.StatusCode() >= 500 {
		return fmt.Errorf("portal returned %s for the login page", res.Status())
	}
	return nil
}
