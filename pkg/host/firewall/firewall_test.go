package firewall

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRules struct {
	existing  map[string]bool
	appendErr error
	appended  []string
}

func key(table, chain string, rulespec ...string) string {
	return table + " " + chain + " " + strings.Join(rulespec, " ")
}

func (f *fakeRules) Exists(table, chain string, rulespec ...string) (bool, error) {
	return f.existing[key(table, chain, rulespec...)], nil
}

func (f *fakeRules) Append(table, chain string, rulespec ...string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, key(table, chain, rulespec...))
	return nil
}

func TestEnsureAllow(t *testing.T) {
	t.Run("AddsMissingRule", func(t *testing.T) {
		r := &fakeRules{existing: map[string]bool{}}
		fw := &ipTables{ipt: r}

		require.NoError(t, fw.EnsureAllow("tcp", 8388))
		require.Len(t, r.appended, 1)
		assert.Equal(t, "filter INPUT -p tcp --dport 8388 -j ACCEPT", r.appended[0])
	})

	t.Run("SkipsPresentRule", func(t *testing.T) {
		r := &fakeRules{existing: map[string]bool{
			"filter INPUT -p udp --dport 8388 -j ACCEPT": true,
		}}
		fw := &ipTables{ipt: r}

		require.NoError(t, fw.EnsureAllow("udp", 8388))
		assert.Empty(t, r.appended)
	})

	t.Run("AppendFailure", func(t *testing.T) {
		r := &fakeRules{existing: map[string]bool{}, appendErr: errors.New("permission denied")}
		fw := &ipTables{ipt: r}

		err := fw.EnsureAllow("tcp", 8388)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tcp/8388")
	})
}
