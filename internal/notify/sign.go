package notify

import (
	"context"
	"fmt"
	"os"

	"github.com/ProtonMail/gopenpgp/v2/crypto"
)

// Signer produces detached, armored PGP signatures over message bodies so
// recipients can tell notifications from forgeries.
type Signer struct {
	keyRing     *crypto.KeyRing
	fingerprint string
}

// NewSigner creates a signer from an armored private key. An encrypted key
// is unlocked with passphrase.
func NewSigner(armoredKey string, passphrase []byte) (*Signer, error) {
	key, err := crypto.NewKeyFromArmored(armoredKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}
	if !key.IsPrivate() {
		return nil, fmt.Errorf("signing key %s is not a private key", key.GetFingerprint())
	}

	locked, err := key.IsLocked()
	if err != nil {
		return nil, fmt.Errorf("failed to inspect signing key: %w", err)
	}
	if locked {
		if len(passphrase) == 0 {
			return nil, fmt.Errorf("signing key %s is locked and no passphrase was given", key.GetFingerprint())
		}
		if key, err = key.Unlock(passphrase); err != nil {
			return nil, fmt.Errorf("failed to unlock signing key: %w", err)
		}
	}

	keyRing, err := crypto.NewKeyRing(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create keyring: %w", err)
	}
	return &Signer{keyRing: keyRing, fingerprint: key.GetFingerprint()}, nil
}

// LoadSigner reads an armored private key from path.
func LoadSigner(path string, passphrase []byte) (*Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}
	return NewSigner(string(data), passphrase)
}

// Fingerprint returns the signing key's fingerprint.
func (s *Signer) Fingerprint() string {
	return s.fingerprint
}

// Sign returns an armored detached signature over text.
func (s *Signer) Sign(text string) (string, error) {
	sig, err := s.keyRing.SignDetached(crypto.NewPlainMessageFromString(text))
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	armored, err := sig.GetArmored()
	if err != nil {
		return "", fmt.Errorf("failed to armor signature: %w", err)
	}
	return armored, nil
}

// SignedBodySeparator separates a body from the signature appended to it.
const SignedBodySeparator = "\n-- \n"

type signedEmail struct {
	Email
	signature string
}

func (e signedEmail) Body() string {
	return e.Email.Body() + SignedBodySeparator + e.signature
}

// SigningMailer appends a detached signature over the body of every
// message before handing it to the next mailer.
type SigningMailer struct {
	next   Mailer
	signer *Signer
}

// NewSigningMailer wraps next so every message it sends is signed.
func NewSigningMailer(next Mailer, signer *Signer) *SigningMailer {
	return &SigningMailer{next: next, signer: signer}
}

// Send signs email and passes it on.
func (m *SigningMailer) Send(ctx context.Context, recipient string, email Email) error {
	sig, err := m.signer.Sign(email.Body())
	if err != nil {
		return err
	}
	return m.next.Send(ctx, recipient, signedEmail{Email: email, signature: sig})
}
