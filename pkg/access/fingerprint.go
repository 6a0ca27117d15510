package access

import (
	"encoding/binary"
	"encoding/hex"
	"slices"
	"strings"

	"github.com/mmcdole/olapsec/pkg/olap"
	"github.com/zeebo/blake3"
)

// canonical lists a role's effective grants, one line per grant, sorted by
// element. Two roles holding the same grants produce the same lines no
// matter the order the grants were made in.
func (r *Role) canonical() []string {
	lines := make([]string, 0, len(r.schemaGrants)+len(r.cubeGrants)+len(r.dimensionGrants)+len(r.hierarchyGrants))

	for s, a := range r.schemaGrants {
		lines = append(lines, line("schema", s.UniqueName(), a.String()))
	}
	for c, a := range r.cubeGrants {
		lines = append(lines, line("cube", c.UniqueName(), a.String()))
	}
	for d, a := range r.dimensionGrants {
		lines = append(lines, line("dimension", qualify(d.Cube(), d), a.String()))
	}
	for h, g := range r.hierarchyGrants {
		key := qualify(h.Dimension().Cube(), h)
		lines = append(lines, line("hierarchy", key, g.access.String(),
			g.top.UniqueName(), g.bottom.UniqueName(), g.rollup.String()))
		for name, m := range g.members {
			lines = append(lines, line("member", key+"/"+name, m.access.String()))
		}
	}

	slices.Sort(lines)
	return lines
}

func qualify(c olap.Cube, e olap.Element) string {
	if c == nil {
		return e.UniqueName()
	}
	return c.UniqueName() + "/" + e.UniqueName()
}

func line(fields ...string) string {
	return strings.Join(fields, "\t")
}

func (r *Role) digest() [32]byte {
	h := blake3.New()
	for _, l := range r.canonical() {
		h.Write([]byte(l + "\n"))
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// Hash returns a digest of the role's grants. It is computed once for a
// frozen role and recomputed on every call while the role is mutable.
func (r *Role) Hash() uint64 {
	if v := r.hash.Load(); v != 0 && !r.mutable {
		return v
	}
	sum := r.digest()
	v := binary.BigEndian.Uint64(sum[:8])
	if v == 0 {
		v = 1
	}
	if !r.mutable {
		r.hash.Store(v)
	}
	return v
}

// Fingerprint returns the full hex digest of the role's grants
func (r *Role) Fingerprint() string {
	sum := r.digest()
	return hex.EncodeToString(sum[:])
}

// Equal reports whether r and other hold the same grants
func (r *Role) Equal(other *Role) bool {
	if r == other {
		return true
	}
	if r == nil || other == nil {
		return false
	}
	if !r.mutable && !other.mutable && r.Hash() != other.Hash() {
		return false
	}
	return slices.Equal(r.canonical(), other.canonical())
}
