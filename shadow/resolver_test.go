// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package shadow

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/qudag/crypto/pq"
	"github.com/luxfi/qudag/router"
)

func TestValidDomain(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"test.dark", true},
		{"my-domain.dark", true},
		{"1234.dark", true},
		{"A.dark", true},
		{strings.Repeat("a", 250) + ".dark", true},
		{"invalid", false},
		{".dark", false},
		{"test.darknet", false},
		{"under_score.dark", false},
		{"two.labels.dark", false},
		{strings.Repeat("a", 251) + ".dark", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.valid, ValidDomain(tt.name))
		})
	}
}

func TestRegisterLookupResolveRoundTrip(t *testing.T) {
	r := NewResolver()
	addr := router.NetworkAddress("10.0.0.7:9000")

	sk, err := r.RegisterDomain("alpha.dark", addr)
	require.NoError(t, err)
	require.NotNil(t, sk)

	record, err := r.LookupDomain("alpha.dark")
	require.NoError(t, err)
	require.False(t, record.RegisteredAt.IsZero())
	require.NotEqual(t, []byte(addr), record.EncryptedAddress)

	resolved, err := r.ResolveAddress("alpha.dark", sk)
	require.NoError(t, err)
	require.Equal(t, addr, resolved)
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := NewResolver()
	_, err := r.RegisterDomain("alpha.dark", router.NetworkAddress("a"))
	require.NoError(t, err)

	_, err = r.RegisterDomain("alpha.dark", router.NetworkAddress("b"))
	require.ErrorIs(t, err, ErrDomainExists)
}

func TestRegisterInvalidNameFails(t *testing.T) {
	r := NewResolver()
	_, err := r.RegisterDomain("not-a-dark-name", router.NetworkAddress("a"))
	require.ErrorIs(t, err, ErrInvalidDomain)
}

func TestLookupUnknownDomainFails(t *testing.T) {
	r := NewResolver()
	_, err := r.LookupDomain("ghost.dark")
	require.ErrorIs(t, err, ErrDomainNotFound)
}

func TestResolveWithWrongKeyFails(t *testing.T) {
	r := NewResolver()
	_, err := r.RegisterDomain("alpha.dark", router.NetworkAddress("10.0.0.7:9000"))
	require.NoError(t, err)

	other, err := pq.MLKEMKeyGen()
	require.NoError(t, err)

	_, err = r.ResolveAddress("alpha.dark", other.Secret)
	require.ErrorIs(t, err, ErrCrypto)
}

func TestKeyedResolverImplementsRouterBoundary(t *testing.T) {
	var _ router.ShadowResolver = (*KeyedResolver)(nil)

	kr := NewKeyedResolver(NewResolver())
	addr := router.NetworkAddress("peer-42")
	require.NoError(t, kr.Register("beta.dark", addr))

	resolved, err := kr.ResolveAddress(context.Background(), "beta.dark")
	require.NoError(t, err)
	require.Equal(t, addr, resolved)

	_, err = kr.ResolveAddress(context.Background(), "ghost.dark")
	require.ErrorIs(t, err, ErrDomainNotFound)
}
