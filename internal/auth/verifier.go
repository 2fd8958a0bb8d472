package auth

import (
	"context"
	"crypto/ed25519"
	"log/slog"
	"time"

	"github.com/mr-tron/base58"

	"github.com/flutterbye/platform/internal/identity"
	"github.com/flutterbye/platform/internal/shared"
)

// Verifier validates a wallet-signed login message and upserts the matching
// identity. It never issues a session token; that is the handler's job.
type Verifier struct {
	challenges *ChallengeStore
	limiter    *AttemptLimiter
	store      *identity.Store
	logger     *slog.Logger
	now        func() time.Time
}

// NewVerifier constructs a Verifier.
func NewVerifier(challenges *ChallengeStore, limiter *AttemptLimiter, store *identity.Store, logger *slog.Logger) *Verifier {
	return &Verifier{
		challenges: challenges,
		limiter:    limiter,
		store:      store,
		logger:     logger,
		now:        time.Now,
	}
}

// Verify checks the signature over message against the wallet's public key
// and the currently issued challenge. Failures are reported with a distinct
// kind and counted toward the attempt budget; success updates last-auth and
// returns the identity.
func (v *Verifier) Verify(ctx context.Context, wallet, signature, message string) (*identity.Identity, error) {
	blocked, err := v.limiter.Blocked(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, shared.ErrTooManyAttempts
	}

	if err := v.challenges.Consume(ctx, wallet, message); err != nil {
		if err == shared.ErrChallengeExpired {
			v.fail(ctx, wallet, "challenge")
		}
		return nil, err
	}

	pub, err := base58.Decode(wallet)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		v.fail(ctx, wallet, "address")
		return nil, shared.ErrSignatureInvalid
	}
	sig, err := base58.Decode(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		v.fail(ctx, wallet, "signature encoding")
		return nil, shared.ErrSignatureInvalid
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), []byte(message), sig) {
		v.fail(ctx, wallet, "signature")
		return nil, shared.ErrSignatureInvalid
	}

	if err := v.limiter.Reset(ctx, wallet); err != nil && v.logger != nil {
		v.logger.Warn("reset attempt counter", slog.Any("error", err))
	}
	return v.store.RecordAuth(ctx, wallet, v.now().UTC())
}

func (v *Verifier) fail(ctx context.Context, wallet, kind string) {
	if err := v.limiter.RecordFailure(ctx, wallet); err != nil && v.logger != nil {
		v.logger.Warn("record auth failure", slog.Any("error", err))
	}
	if v.logger != nil {
		v.logger.Warn("wallet verification failed",
			slog.String("wallet", wallet),
			slog.String("kind", kind))
	}
}
