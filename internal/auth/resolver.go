package auth

import (
	"net/http"
	"strings"

	"github.com/flutterbye/platform/internal/identity"
	"github.com/flutterbye/platform/internal/shared"
)

// WalletHeader carries the caller's wallet address on header-credential
// endpoints.
const WalletHeader = "X-Wallet-Address"

// CredentialResolver maps a transport credential (bearer token or wallet
// header) to an identity.
type CredentialResolver struct {
	tokens *TokenCodec
	store  *identity.Store
}

// NewCredentialResolver constructs a CredentialResolver.
func NewCredentialResolver(tokens *TokenCodec, store *identity.Store) *CredentialResolver {
	return &CredentialResolver{tokens: tokens, store: store}
}

// ResolveRequest extracts and resolves the credential attached to an HTTP
// request. Unauthenticated requests return shared.ErrUnauthenticated.
func (cr *CredentialResolver) ResolveRequest(r *http.Request) (*identity.Identity, error) {
	return cr.ResolveCredential(r, bearerToken(r), r.Header.Get(WalletHeader))
}

// ResolveCredential resolves a raw token or wallet address. The token wins
// when both are present.
func (cr *CredentialResolver) ResolveCredential(r *http.Request, token, wallet string) (*identity.Identity, error) {
	if token != "" {
		subject, err := cr.tokens.Parse(token)
		if err != nil {
			return nil, err
		}
		wallet = subject
	}
	if wallet == "" {
		return nil, shared.ErrUnauthenticated
	}
	return cr.store.Resolve(r.Context(), wallet)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
