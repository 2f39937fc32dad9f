// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package shadow

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"regexp"
	"sync"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/luxfi/qudag/crypto/pq"
	"github.com/luxfi/qudag/router"
)

// hkdfInfo domain-separates the AEAD key derived for address encryption
// from every other use of an ML-KEM shared secret in the protocol.
const hkdfInfo = "qudag-dark-domain-v1"

// domainPattern is the .dark name grammar: an alphanumeric-and-hyphen
// label followed by the literal ".dark" suffix. Overall length bounds are
// checked separately.
var domainPattern = regexp.MustCompile(`^[A-Za-z0-9-]+\.dark$`)

const (
	minDomainLen = 4
	maxDomainLen = 255
)

// ValidDomain reports whether name satisfies the .dark grammar.
func ValidDomain(name string) bool {
	return len(name) >= minDomainLen &&
		len(name) <= maxDomainLen &&
		domainPattern.MatchString(name)
}

// DomainRecord is the public registration entry for one .dark name. The
// encrypted address is (kem-ciphertext || nonce || aead-ciphertext); only
// the holder of the registration secret key can open it.
type DomainRecord struct {
	PublicKey        pq.MLKEMPublicKey
	EncryptedAddress []byte
	RegisteredAt     time.Time
}

// Resolver is the thread-safe .dark domain registry.
type Resolver struct {
	mu      sync.RWMutex
	domains map[string]*DomainRecord
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{domains: make(map[string]*DomainRecord)}
}

// RegisterDomain registers name as resolving to addr. A fresh ML-KEM
// keypair is generated for the registration; addr is sealed under a key
// encapsulated to its public half, and the secret half is returned to the
// caller — it is the only way to resolve the domain later and is never
// retained by the resolver.
func (r *Resolver) RegisterDomain(name string, addr router.NetworkAddress) (*pq.MLKEMSecretKey, error) {
	if !ValidDomain(name) {
		return nil, ErrInvalidDomain
	}

	kp, err := pq.MLKEMKeyGen()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}

	encrypted, err := sealAddress(kp.Public, addr)
	if err != nil {
		return nil, err
	}

	record := &DomainRecord{
		PublicKey:        kp.Public,
		EncryptedAddress: encrypted,
		RegisteredAt:     time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.domains[name]; exists {
		kp.Secret.Zeroize()
		return nil, ErrDomainExists
	}
	r.domains[name] = record
	return kp.Secret, nil
}

// LookupDomain returns the public record for name.
func (r *Resolver) LookupDomain(name string) (*DomainRecord, error) {
	if !ValidDomain(name) {
		return nil, ErrInvalidDomain
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.domains[name]
	if !ok {
		return nil, ErrDomainNotFound
	}
	return record, nil
}

// ResolveAddress opens name's encrypted address with sk, the secret key
// returned at registration time.
func (r *Resolver) ResolveAddress(name string, sk *pq.MLKEMSecretKey) (router.NetworkAddress, error) {
	record, err := r.LookupDomain(name)
	if err != nil {
		return nil, err
	}
	return openAddress(sk, record.EncryptedAddress)
}

// sealAddress encrypts addr for pk: encapsulate to obtain a shared secret,
// derive a ChaCha20-Poly1305 key from it, and seal addr under a random
// nonce. Wire form is kem-ciphertext || nonce || aead-ciphertext.
func sealAddress(pk pq.MLKEMPublicKey, addr router.NetworkAddress) ([]byte, error) {
	kemCiphertext, sharedSecret, err := pq.MLKEMEncapsulate(pk)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	aead, err := deriveAEAD(sharedSecret)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}

	out := make([]byte, 0, pq.MLKEMCiphertextSize+len(nonce)+len(addr)+aead.Overhead())
	out = append(out, kemCiphertext[:]...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, addr, nil)
	return out, nil
}

// openAddress reverses sealAddress under sk.
func openAddress(sk *pq.MLKEMSecretKey, encrypted []byte) (router.NetworkAddress, error) {
	const headerSize = pq.MLKEMCiphertextSize + chacha20poly1305.NonceSize
	if len(encrypted) < headerSize {
		return nil, ErrCrypto
	}

	var kemCiphertext [pq.MLKEMCiphertextSize]byte
	copy(kemCiphertext[:], encrypted[:pq.MLKEMCiphertextSize])
	nonce := encrypted[pq.MLKEMCiphertextSize:headerSize]

	sharedSecret, err := pq.MLKEMDecapsulate(sk, kemCiphertext)
	if err != nil {
		return nil, ErrCrypto
	}
	aead, err := deriveAEAD(sharedSecret)
	if err != nil {
		return nil, err
	}
	addr, err := aead.Open(nil, nonce, encrypted[headerSize:], nil)
	if err != nil {
		return nil, ErrCrypto
	}
	return addr, nil
}

func deriveAEAD(sharedSecret [pq.MLKEMSharedKeySize]byte) (cipher.AEAD, error) {
	kdf := hkdf.New(sha256.New, sharedSecret[:], nil, []byte(hkdfInfo))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	aead, err := chacha20poly1305.New(key)
	pq.Zeroize(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return aead, nil
}

// KeyedResolver pairs a Resolver with the secret keys this node obtained
// when registering its own domains. It satisfies the router's resolver
// boundary so shadow paths can be built directly from a domain name.
type KeyedResolver struct {
	resolver *Resolver

	mu   sync.RWMutex
	keys map[string]*pq.MLKEMSecretKey
}

// NewKeyedResolver wraps resolver with an empty key store.
func NewKeyedResolver(resolver *Resolver) *KeyedResolver {
	return &KeyedResolver{resolver: resolver, keys: make(map[string]*pq.MLKEMSecretKey)}
}

// Register registers name via the underlying resolver and retains the
// returned secret key so ResolveAddress can open the record later.
func (k *KeyedResolver) Register(name string, addr router.NetworkAddress) error {
	sk, err := k.resolver.RegisterDomain(name, addr)
	if err != nil {
		return err
	}
	k.mu.Lock()
	k.keys[name] = sk
	k.mu.Unlock()
	return nil
}

// ResolveAddress resolves name using the key retained at registration.
func (k *KeyedResolver) ResolveAddress(ctx context.Context, name string) (router.NetworkAddress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k.mu.RLock()
	sk, ok := k.keys[name]
	k.mu.RUnlock()
	if !ok {
		return nil, ErrDomainNotFound
	}
	return k.resolver.ResolveAddress(name, sk)
}
