package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/daap14/useradmin/internal/notify"
)

func eventsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Show toasts addressed to you as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			endpoint, err := eventsURL(a.cfg.Server)
			if err != nil {
				return err
			}

			header := http.Header{}
			header.Set("X-API-Key", a.cfg.APIKey)
			conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
			if err != nil {
				if resp != nil {
					return fmt.Errorf("connecting to %s: %s", endpoint, resp.Status)
				}
				return fmt.Errorf("connecting to %s: %w", endpoint, err)
			}
			defer conn.Close()

			go func() {
				<-ctx.Done()
				conn.Close()
			}()

			sink := notify.NewWriter(cmd.OutOrStdout())
			for {
				_, raw, err := conn.ReadMessage()
				if err != nil {
					if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						return nil
					}
					return err
				}

				var msg notify.Message
				if err := json.Unmarshal(raw, &msg); err != nil {
					return fmt.Errorf("decoding event: %w", err)
				}
				if msg.Type == notify.MessageToast && msg.Toast != nil {
					sink.ShowToast(ctx, uuid.Nil, *msg.Toast)
				}
			}
		},
	}
}

func eventsURL(server string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", errors.New("server URL must use http or https")
	}
	u.Path = "/events"
	return u.String(), nil
}
