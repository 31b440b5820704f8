// Package setup provisions communities and bot accounts through the admin
// API and records them in the state file. Re-running skips communities that
// already exist, so a partial run can be resumed.
package setup

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"stagehand/internal/config"
	"stagehand/internal/forum"
	"stagehand/internal/state"
)

// Plan is the communities config file.
type Plan struct {
	Communities []CommunityPlan `yaml:"communities"`
}

type CommunityPlan struct {
	Active      *bool          `yaml:"active"`
	Type        string         `yaml:"type"`
	NameStyle   string         `yaml:"name_style"`
	Description string         `yaml:"description"`
	BotCount    int            `yaml:"bot_count"`
	AvatarRules map[string]any `yaml:"avatar_rules"`
}

func (p CommunityPlan) active() bool {
	return p.Active == nil || *p.Active
}

func loadPlan(path string) (Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("reading communities config: %w", err)
	}

	var plan Plan
	if err := yaml.Unmarshal(raw, &plan); err != nil {
		return Plan{}, fmt.Errorf("parsing communities config: %w", err)
	}
	return plan, nil
}

type Provisioner struct {
	Logger *slog.Logger
	Config *config.Config
	Client *forum.Client
	Store  *state.Store
}

func (p *Provisioner) Init(_ context.Context) error {
	p.Logger = p.Logger.With("component", "setup.Provisioner")
	return nil
}

func (p *Provisioner) Run(ctx context.Context) error {
	plan, err := loadPlan(p.Config.CommunitiesFile)
	if err != nil {
		return err
	}

	if err := p.Client.Login(ctx); err != nil {
		return err
	}

	for i, comm := range plan.Communities {
		if !comm.active() {
			continue
		}

		key := fmt.Sprintf("community_%d", i)
		if p.Store.HasCommunity(key) {
			p.Logger.Info("community already exists, skipping", "key", key)
			continue
		}

		if err := p.provision(ctx, key, comm); err != nil {
			return err
		}
	}

	p.Logger.Info("forum setup complete", "state", p.Config.StateFile)
	return nil
}

func (p *Provisioner) provision(ctx context.Context, key string, plan CommunityPlan) error {
	commType := plan.Type
	if commType == "" {
		commType = "INVITE_ONLY"
	}

	p.Logger.Info("creating community", "key", key, "type", commType, "style", plan.NameStyle)
	comm, err := p.Client.CreateCommunity(ctx, forum.CommunityRequest{
		Type:        commType,
		Description: plan.Description,
		NameStyle:   plan.NameStyle,
	})
	if err != nil {
		return err
	}
	p.Logger.Info("created community", "name", comm.Name, "slug", comm.Slug)

	p.Store.PutCommunity(key, state.Community{
		ID:         comm.ID,
		Name:       comm.Name,
		Slug:       comm.Slug,
		InviteCode: comm.InviteCode,
		Password:   comm.Password,
	})
	if err := p.Store.Save(); err != nil {
		return err
	}

	botCount := plan.BotCount
	if botCount == 0 {
		botCount = 10
	}

	p.Logger.Info("creating bots", "count", botCount, "community", comm.Name)
	bots, err := p.Client.CreateBots(ctx, botCount, comm.ID, plan.AvatarRules)
	if err != nil {
		return err
	}

	for j, bot := range bots {
		p.Store.PutBot(fmt.Sprintf("%s_bot_%d", key, j), state.Bot{
			ID:            bot.ID,
			DisplayName:   bot.DisplayName,
			Email:         bot.Email,
			CommunityID:   comm.ID,
			CommunitySlug: comm.Slug,
		}, bot.AccessToken)
	}
	p.Logger.Info("created bots", "count", len(bots))

	return p.Store.Save()
}
