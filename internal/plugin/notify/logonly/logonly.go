// Package logonly is a notifier for development: it logs instead of
// delivering anything, and hands out fake subscription handles.
package logonly

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"

	registrynotify "github.com/wildtrack/mediatag-service/internal/registry/notify"
)

func init() {
	registrynotify.Register(registrynotify.Plugin{
		Name: "logonly",
		Loader: func(ctx context.Context) (registrynotify.Notifier, error) {
			return &Notifier{}, nil
		},
	})
}

type Notifier struct {
	seq atomic.Int64
}

func (n *Notifier) Publish(ctx context.Context, msg registrynotify.Message) error {
	log.Info("Notification", "tag", strings.ToLower(msg.Tag), "subject", msg.Subject)
	return nil
}

func (n *Notifier) Subscribe(ctx context.Context, endpoint string, tags []string) (string, error) {
	handle := fmt.Sprintf("logonly:%s:%d", endpoint, n.seq.Add(1))
	log.Info("Subscribed", "endpoint", endpoint, "tags", tags, "handle", handle)
	return handle, nil
}

func (n *Notifier) Unsubscribe(ctx context.Context, handle string) error {
	log.Info("Unsubscribed", "handle", handle)
	return nil
}
