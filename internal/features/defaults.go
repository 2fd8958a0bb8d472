package features

import (
	"context"
	"log/slog"

	"github.com/flutterbye/platform/internal/identity"
)

func requires(role identity.Role) *identity.Role { return &role }

// DefaultFeatures returns the seed feature set for a fresh deployment.
func DefaultFeatures() []*Feature {
	return []*Feature{
		{
			ID:          "home",
			Name:        "Home Dashboard",
			Description: "Main landing page and user dashboard",
			Category:    CategoryCore,
			Enabled:     true,
			Routes:      []string{"/home", "/"},
			NavItems:    []string{"Home"},
		},
		{
			ID:           "mint",
			Name:         "Token Minting",
			Description:  "Create and mint new tokens",
			Category:     CategoryCore,
			Enabled:      true,
			Routes:       []string{"/mint"},
			APIEndpoints: []string{"/api/tokens/create"},
			NavItems:     []string{"Mint"},
		},
		{
			ID:           "marketplace",
			Name:         "Token Marketplace",
			Description:  "Buy, sell, and trade tokens",
			Category:     CategoryCore,
			Enabled:      true,
			Routes:       []string{"/marketplace"},
			APIEndpoints: []string{"/api/marketplace/*"},
			NavItems:     []string{"Marketplace"},
		},
		{
			ID:           "portfolio",
			Name:         "Portfolio Management",
			Description:  "View and manage user portfolio",
			Category:     CategoryCore,
			Enabled:      true,
			RequiredRole: requires(identity.RoleUser),
			Routes:       []string{"/portfolio", "/redeem"},
			APIEndpoints: []string{"/api/users/*/holdings"},
			NavItems:     []string{"Dashboard"},
		},
		{
			ID:           "flutterai",
			Name:         "FlutterAI Intelligence",
			Description:  "AI-powered wallet analysis and insights",
			Category:     CategoryAI,
			Enabled:      true,
			RequiredRole: requires(identity.RoleUser),
			Routes:       []string{"/flutterai-dashboard"},
			APIEndpoints: []string{"/api/flutterai/*"},
			NavItems:     []string{"FlutterAI"},
		},
		{
			ID:           "ai_hub",
			Name:         "AI Hub",
			Description:  "Central AI features and ARIA chat",
			Category:     CategoryAI,
			Enabled:      true,
			Routes:       []string{"/ai-overview", "/ai-showcase", "/living-ai"},
			APIEndpoints: []string{"/api/ai/*"},
			NavItems:     []string{"AI Hub"},
		},
		{
			ID:           "celestial_wallet",
			Name:         "Celestial Wallet Personalization",
			Description:  "AI-powered cosmic wallet personalization",
			Category:     CategoryAI,
			Enabled:      true,
			Routes:       []string{"/celestial", "/cosmic-wallet"},
			APIEndpoints: []string{"/api/celestial/*"},
		},
		{
			ID:           "enterprise_intelligence",
			Name:         "Enterprise Intelligence APIs",
			Description:  "Professional blockchain intelligence for enterprises",
			Category:     CategoryEnterprise,
			Enabled:      true,
			RequiredRole: requires(identity.RoleAdmin),
			Routes:       []string{"/enterprise-intelligence"},
			APIEndpoints: []string{"/api/enterprise/*"},
		},
		{
			ID:           "government_apis",
			Name:         "Government Intelligence APIs",
			Description:  "Government-grade blockchain analysis tools",
			Category:     CategoryEnterprise,
			Enabled:      true,
			RequiredRole: requires(identity.RoleAdmin),
			APIEndpoints: []string{"/api/government/*"},
		},
		{
			ID:           "chat",
			Name:         "Real-time Chat",
			Description:  "Multi-room chat system with AI integration",
			Category:     CategorySocial,
			Enabled:      true,
			RequiredRole: requires(identity.RoleUser),
			Routes:       []string{"/chat"},
			APIEndpoints: []string{"/api/chat/*"},
			NavItems:     []string{"Chat"},
		},
		{
			ID:           "flutterwave",
			Name:         "FlutterWave Messaging",
			Description:  "AI-powered butterfly effect messaging",
			Category:     CategorySocial,
			Enabled:      true,
			Routes:       []string{"/sms-nexus"},
			APIEndpoints: []string{"/api/sms/*"},
			NavItems:     []string{"FlutterWave"},
		},
		{
			ID:           "message_nfts",
			Name:         "FlutterArt NFTs",
			Description:  "Create and collect message NFTs",
			Category:     CategorySocial,
			Enabled:      true,
			Routes:       []string{"/message-nfts", "/nft-marketplace"},
			APIEndpoints: []string{"/api/message-nfts/*"},
			NavItems:     []string{"FlutterArt"},
		},
		{
			ID:           "payments",
			Name:         "Payment System",
			Description:  "Stripe-powered payment processing",
			Category:     CategoryConsumer,
			Enabled:      true,
			Routes:       []string{"/payments", "/subscribe"},
			APIEndpoints: []string{"/api/create-payment-intent", "/api/get-or-create-subscription"},
			NavItems:     []string{"Payments"},
		},
		{
			ID:          "greeting_cards",
			Name:        "Digital Greeting Cards",
			Description: "Create and send personalized greeting cards",
			Category:    CategoryConsumer,
			Enabled:     true,
			Routes:      []string{"/greeting-cards"},
			NavItems:    []string{"Cards"},
		},
		{
			ID:           "viral_trending",
			Name:         "Viral Trending System",
			Description:  "Track and promote viral content",
			Category:     CategoryConsumer,
			Enabled:      true,
			Routes:       []string{"/trending", "/viral-dashboard"},
			APIEndpoints: []string{"/api/viral/*"},
		},
		{
			ID:           "admin_dashboard",
			Name:         "Admin Dashboard",
			Description:  "Comprehensive admin control panel",
			Category:     CategoryAdmin,
			Enabled:      true,
			RequiredRole: requires(identity.RoleAdmin),
			Routes:       []string{"/admin", "/admin-unified"},
			APIEndpoints: []string{"/api/admin/*"},
			NavItems:     []string{"Admin"},
		},
		{
			ID:           "feature_toggles",
			Name:         "Feature Toggle Control",
			Description:  "Control feature availability across the platform",
			Category:     CategoryAdmin,
			Enabled:      true,
			RequiredRole: requires(identity.RoleAdmin),
			Routes:       []string{"/admin/features"},
			APIEndpoints: []string{"/api/admin/features/*"},
		},
	}
}

// EnsureDefaults seeds the registry on first boot. A registry that already
// holds features is left untouched.
func (r *Registry) EnsureDefaults(ctx context.Context) error {
	if len(r.List()) > 0 {
		return nil
	}
	for _, f := range DefaultFeatures() {
		if _, err := r.Create(ctx, f, "system"); err != nil {
			return err
		}
	}
	if r.logger != nil {
		r.logger.Info("seeded default features", slog.Int("count", len(r.List())))
	}
	return nil
}
