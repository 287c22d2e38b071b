package resolve

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fspatch/internal/converter"
	"fspatch/internal/heuristic"
)

const imageSize = 0x70000

// fsFragment is a BL followed by AND/CMP/B.ne, the fs-nocntchk shape.
func fsFragment(bl uint32) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b, bl)
	copy(b[4:], []byte{0x08, 0x1c, 0x00, 0x12, 0x1f, 0x05, 0x00, 0x71, 0x41, 0x01, 0x00, 0x54})
	return b
}

// ncaFragment is a TBZ, two words, CMP and B.ne, the fs-noncasigchk shape.
var ncaFragment = []byte{
	0x60, 0x00, 0x00, 0x36,
	0xe0, 0x03, 0x13, 0xaa,
	0x1f, 0x20, 0x03, 0xd5,
	0x1f, 0x09, 0x00, 0x71,
	0x61, 0x00, 0x00, 0x54,
}

type imageBuilder struct {
	image []byte
}

func newImage() *imageBuilder {
	return &imageBuilder{image: make([]byte, imageSize)}
}

func (b *imageBuilder) fs(at int) *imageBuilder {
	copy(b.image[at:], fsFragment(0x94000010))
	return b
}

func (b *imageBuilder) nca(at int) *imageBuilder {
	copy(b.image[at:], ncaFragment)
	return b
}

func builtinResolver(t *testing.T, opts ...Option) *Resolver {
	t.Helper()
	r, err := New(heuristic.Builtin(), opts...)
	require.NoError(t, err)
	return r
}

func TestResolveAllFound(t *testing.T) {
	image := newImage().fs(0x6a234).nca(0x6b000).image

	res, err := builtinResolver(t).Resolve(context.Background(), image)
	require.NoError(t, err)
	require.True(t, res.Resolved())
	assert.Equal(t, imageSize, res.ImageSize)
	assert.Equal(t, 1, res.Passes)

	fs, ok := res.Lookup(heuristic.FsNoCntChk)
	require.True(t, ok)
	assert.Equal(t, 0x6a238, fs.Offset)
	assert.Equal(t, StatusResolved, fs.Status())
	assert.NotEmpty(t, fs.Details)
	assert.NoError(t, fs.DetailsErr)

	nca, ok := res.Lookup(heuristic.FsNoNcaSigChk)
	require.True(t, ok)
	assert.Equal(t, 0x6b000, nca.Offset)
}

func TestResolveNarrowsAmbiguous(t *testing.T) {
	// Only the NCA candidate near the resolved fs-nocntchk offset survives.
	image := newImage().fs(0x6a234).nca(0x20000).nca(0x6b000).image

	res, err := builtinResolver(t).Resolve(context.Background(), image)
	require.NoError(t, err)

	nca, ok := res.Lookup(heuristic.FsNoNcaSigChk)
	require.True(t, ok)
	assert.Equal(t, 0x6b000, nca.Offset)
	assert.Equal(t, []int{0x6b000}, nca.Candidates)
	assert.Equal(t, 2, res.Passes)
}

func TestResolveChainedNarrowing(t *testing.T) {
	// a resolves alone and narrows b. c keeps both candidates near a and
	// only resolves once b's offset is known.
	image := make([]byte, 0x40000)
	put := func(at int, tag byte) {
		copy(image[at:], []byte{0xde, 0xad, tag, 0x00})
	}
	put(0x10000, 0xaa)
	put(0x10a00, 0xbb)
	put(0x30000, 0xbb)
	put(0xf800, 0xcc)
	put(0x10c00, 0xcc)

	variants := []heuristic.Variant{
		{Name: "c", Pattern: "dead cc00", Proximity: 0x1000, Priority: 2},
		{Name: "b", Pattern: "dead bb00", Priority: 1},
		{Name: "a", Pattern: "dead aa00"},
	}
	r, err := New(variants)
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), image)
	require.NoError(t, err)

	b, _ := res.Lookup("b")
	c, _ := res.Lookup("c")
	assert.Equal(t, 0x10a00, b.Offset)
	assert.Equal(t, 0x10c00, c.Offset)
}

func taggedImage(size int, places map[int]byte) []byte {
	image := make([]byte, size)
	for at, tag := range places {
		copy(image[at:], []byte{0xde, 0xad, tag, 0x00})
	}
	return image
}

func TestResolveFarReferenceKeepsCandidates(t *testing.T) {
	// a confirms both b candidates; z is far from both and must not empty b.
	image := taggedImage(0x80000, map[int]byte{
		0x10000: 0xaa,
		0x70000: 0xee,
		0x10100: 0xbb,
		0x10200: 0xbb,
	})

	r, err := New([]heuristic.Variant{
		{Name: "a", Pattern: "dead aa00"},
		{Name: "z", Pattern: "dead ee00"},
		{Name: "b", Pattern: "dead bb00", Priority: 1},
	})
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), image)
	assert.ErrorIs(t, err, ErrUnresolved)
	assert.ErrorIs(t, err, heuristic.ErrAmbiguousMatch)
	assert.NotErrorIs(t, err, heuristic.ErrNoMatch)
	require.NotNil(t, res)

	b, ok := res.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, StatusAmbiguous, b.Status())
	assert.Equal(t, []int{0x10100, 0x10200}, b.Candidates)
}

func TestResolveLowerPriorityDoesNotNarrow(t *testing.T) {
	// low resolves next to one of high's candidates but ranks below it.
	image := taggedImage(0x80000, map[int]byte{
		0x10000: 0xaa,
		0x50000: 0xaa,
		0x10100: 0xbb,
	})

	r, err := New([]heuristic.Variant{
		{Name: "high", Pattern: "dead aa00"},
		{Name: "low", Pattern: "dead bb00", Priority: 1},
	})
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), image)
	assert.ErrorIs(t, err, ErrUnresolved)

	high, _ := res.Lookup("high")
	assert.Equal(t, StatusAmbiguous, high.Status())
	assert.Equal(t, []int{0x10000, 0x50000}, high.Candidates)

	low, _ := res.Lookup("low")
	assert.Equal(t, 0x10100, low.Offset)
}

func TestResolveUnresolved(t *testing.T) {
	tests := []struct {
		name       string
		image      []byte
		wantErr    error
		wantStatus map[string]string
	}{
		{
			name:    "nothing found",
			image:   make([]byte, 0x1000),
			wantErr: heuristic.ErrNoMatch,
			wantStatus: map[string]string{
				heuristic.FsNoCntChk:    StatusNotFound,
				heuristic.FsNoNcaSigChk: StatusNotFound,
			},
		},
		{
			name:    "still ambiguous",
			image:   newImage().fs(0x1000).fs(0x2000).image,
			wantErr: heuristic.ErrAmbiguousMatch,
			wantStatus: map[string]string{
				heuristic.FsNoCntChk:    StatusAmbiguous,
				heuristic.FsNoNcaSigChk: StatusNotFound,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := builtinResolver(t).Resolve(context.Background(), tt.image)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnresolved)
			assert.ErrorIs(t, err, tt.wantErr)

			require.NotNil(t, res)
			assert.False(t, res.Resolved())
			for name, status := range tt.wantStatus {
				o, ok := res.Lookup(name)
				require.True(t, ok, name)
				assert.Equal(t, status, o.Status(), name)
			}
		})
	}
}

func TestResolveDetailsErrorDoesNotFail(t *testing.T) {
	image := make([]byte, 0x6a300)
	copy(image[0x6a234:], fsFragment(0x94000400)) // branch target past the end

	v, _ := heuristic.Lookup(heuristic.FsNoCntChk)
	r, err := New([]heuristic.Variant{v})
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), image)
	require.NoError(t, err)

	o := res.Outcomes[0]
	assert.True(t, o.Resolved())
	assert.ErrorIs(t, o.DetailsErr, converter.ErrOutOfRange)
	assert.Empty(t, o.Details)
}

func TestResolveWithoutDetails(t *testing.T) {
	image := newImage().fs(0x6a234).nca(0x6b000).image

	res, err := builtinResolver(t, WithoutDetails()).Resolve(context.Background(), image)
	require.NoError(t, err)
	for _, o := range res.Outcomes {
		assert.Empty(t, o.Details, o.Name)
	}
}

func TestResolveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := builtinResolver(t).Resolve(ctx, newImage().image)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestResolveLogsNarrowing(t *testing.T) {
	var buf bytes.Buffer
	lg := log.New(&buf)
	lg.SetLevel(log.DebugLevel)

	image := newImage().fs(0x6a234).nca(0x20000).nca(0x6b000).image
	_, err := builtinResolver(t, WithLogger(lg)).Resolve(context.Background(), image)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "scan")
	assert.Contains(t, buf.String(), "narrow")
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoVariants)

	v, _ := heuristic.Lookup(heuristic.FsNoCntChk)
	_, err = New([]heuristic.Variant{v, v})
	assert.ErrorIs(t, err, heuristic.ErrInvalidVariant)

	_, err = New([]heuristic.Variant{{Name: "bad", Pattern: "xyz"}})
	assert.ErrorIs(t, err, heuristic.ErrInvalidVariant)
}

func TestNewOrdering(t *testing.T) {
	variants := append(heuristic.Builtin(),
		heuristic.Variant{Name: "late", Pattern: "00112233", Priority: 5},
		heuristic.Variant{Name: "early", Pattern: "00", Priority: -1},
		heuristic.Variant{Name: "b-same", Pattern: "0011", Priority: 5},
		heuristic.Variant{Name: "a-same", Pattern: "0011", Priority: 5},
	)
	r, err := New(variants)
	require.NoError(t, err)

	var names []string
	for _, v := range r.Variants() {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{
		"early",
		heuristic.FsNoCntChk, // 22 fixed nibbles
		heuristic.FsNoNcaSigChk,
		"late",
		"a-same",
		"b-same",
	}, names)
}
