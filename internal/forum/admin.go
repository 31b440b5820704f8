package forum

import (
	"context"
	"fmt"
)

// Community is a provisioned community, as the admin API reports it.
type Community struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	InviteCode string `json:"inviteCode"`
	Password   string `json:"password"`
}

// Bot is a provisioned bot account. Tokens are only present on batch
// creation responses.
type Bot struct {
	ID           string `json:"id"`
	DisplayName  string `json:"displayName"`
	Email        string `json:"email"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// CommunityRequest describes a community to create. The name is generated
// server-side from NameStyle.
type CommunityRequest struct {
	Type        string         `json:"type"`
	Description string         `json:"description,omitempty"`
	NameStyle   string         `json:"nameStyle,omitempty"`
	AvatarRules map[string]any `json:"-"`
}

// Login authenticates the admin account and keeps the access token for
// subsequent admin calls.
func (c *Client) Login(ctx context.Context) error {
	var out struct {
		Tokens struct {
			AccessToken string `json:"accessToken"`
		} `json:"tokens"`
	}

	res, err := c.r(ctx).
		SetBody(map[string]string{
			"email":    c.Config.AdminEmail,
			"password": c.Config.AdminPassword,
		}).
		SetResult(&out).
		Post(c.baseURL + "/auth/login")
	if err := checkResponse(res, err); err != nil {
		return fmt.Errorf("admin login failed: %w", err)
	}

	c.adminToken = out.Tokens.AccessToken
	c.Logger.Info("admin login successful")
	return nil
}

// CreateCommunity creates a community with an auto-generated name.
func (c *Client) CreateCommunity(ctx context.Context, req CommunityRequest) (Community, error) {
	var out Community

	res, err := c.r(ctx).
		SetHeader("Authorization", c.bearer("")).
		SetBody(req).
		SetResult(&out).
		Post(c.baseURL + "/admin/communities")
	if err := checkResponse(res, err); err != nil {
		return Community{}, err
	}

	return out, nil
}

// CreateBots bulk-creates bot accounts joined to the given community. The
// response carries each bot's access token.
func (c *Client) CreateBots(ctx context.Context, count int, communityID string, avatarRules map[string]any) ([]Bot, error) {
	body := map[string]any{
		"count":          count,
		"subcommunityId": communityID,
	}
	if avatarRules != nil {
		body["avatarRules"] = avatarRules
	}

	var out struct {
		Bots []Bot `json:"bots"`
	}

	res, err := c.r(ctx).
		SetHeader("Authorization", c.bearer("")).
		SetBody(body).
		SetResult(&out).
		Post(c.baseURL + "/admin/bots/batch")
	if err := checkResponse(res, err); err != nil {
		return nil, err
	}

	return out.Bots, nil
}
