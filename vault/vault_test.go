// Copyright 2025 Flow State Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := New(nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		v.Close() //nolint:errcheck
	})
	return v
}

func TestGetMissingKey(t *testing.T) {
	v := newTestVault(t)
	_, err := v.Get([]byte("nope"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestPutIfAbsent(t *testing.T) {
	v := newTestVault(t)
	val, wrote, err := v.PutIfAbsent([]byte("k"), []byte("first"))
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Equal(t, []byte("first"), val)

	// Second writer loses the race and gets the canonical value back
	val, wrote, err = v.PutIfAbsent([]byte("k"), []byte("second"))
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Equal(t, []byte("first"), val)

	stored, err := v.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), stored)
}

func TestPutIfAbsentPair(t *testing.T) {
	v := newTestVault(t)
	primary := []byte("vote/1/arb/5/voter/1")
	alias := []byte("commit/1/arb/5/voter/0xabc")
	val, wrote, err := v.PutIfAbsentPair(primary, alias, []byte("secret"))
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Equal(t, []byte("secret"), val)

	// Both keys resolve to the same value
	for _, key := range [][]byte{primary, alias} {
		stored, err := v.Get(key)
		require.NoError(t, err)
		assert.Equal(t, []byte("secret"), stored)
	}

	// A conflicting write returns the stored secret and leaves both keys alone
	val, wrote, err = v.PutIfAbsentPair(primary, alias, []byte("other"))
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Equal(t, []byte("secret"), val)
}

func TestKeysWithPrefix(t *testing.T) {
	v := newTestVault(t)
	for _, key := range []string{"vote/1/a", "vote/1/b", "commit/1/a"} {
		_, _, err := v.PutIfAbsent([]byte(key), []byte("x"))
		require.NoError(t, err)
	}
	keys, err := v.KeysWithPrefix([]byte("vote/"))
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestFileBackedRequiresKey(t *testing.T) {
	_, err := New(&Config{
		DataDir: t.TempDir(),
	})
	assert.Error(t, err)
}

func TestFileBackedRoundTrip(t *testing.T) {
	key := make([]byte, EncryptionKeySize)
	for i := range key {
		key[i] = byte(i)
	}
	dataDir := t.TempDir()
	v, err := New(&Config{
		DataDir:       dataDir,
		EncryptionKey: key,
	})
	require.NoError(t, err)
	_, _, err = v.PutIfAbsent([]byte("k"), []byte("v"))
	require.NoError(t, err)
	require.NoError(t, v.Close())

	// Values survive reopen with the same key
	v, err = New(&Config{
		DataDir:       dataDir,
		EncryptionKey: key,
	})
	require.NoError(t, err)
	defer v.Close() //nolint:errcheck
	val, err := v.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
}
