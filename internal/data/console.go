package data

import (
	"context"

	"github.com/chaqqon/chatgate/internal/biz/repo"
	"github.com/chaqqon/chatgate/internal/infra/console"
)

// consoleRepo implements the message repository over the local console
type consoleRepo struct {
	client *console.Client
	admins map[string]bool
}

// NewConsoleRepo creates a console message repository. admins are sender names.
func NewConsoleRepo(client *console.Client, admins []string) repo.MessageRepo {
	set := make(map[string]bool, len(admins))
	for _, a := range admins {
		set[a] = true
	}
	return &consoleRepo{client: client, admins: set}
}

func (r *consoleRepo) Reply(ctx context.Context, conversationID, msgID, text string) error {
	return r.client.Print(msgID, text)
}

// SendTyping is a no-op; replies on the console are immediate
func (r *consoleRepo) SendTyping(ctx context.Context, conversationID, msgID string) error {
	return nil
}

func (r *consoleRepo) GetAdministrators(ctx context.Context, conversationID string) (map[string]bool, error) {
	out := make(map[string]bool, len(r.admins))
	for k, v := range r.admins {
		out[k] = v
	}
	return out, nil
}
