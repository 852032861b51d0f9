package twitch

import (
	"context"
	"fmt"
	"time"

	"github.com/Its-donkey/kappopher/helix"
)

const appTokenTimeout = 15 * time.Second

// NewHelixClient builds an app-token Helix client and fetches the first token
// so bad credentials fail at startup.
func NewHelixClient(ctx context.Context, clientID, clientSecret string) (*helix.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, appTokenTimeout)
	defer cancel()

	auth := helix.NewAuthClient(helix.AuthConfig{ClientID: clientID, ClientSecret: clientSecret})
	client := helix.NewClient(clientID, auth)

	if _, err := auth.GetAppAccessToken(ctx); err != nil {
		return nil, fmt.Errorf("failed to get app access token: %w", err)
	}
	return client, nil
}
