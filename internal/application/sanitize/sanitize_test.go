package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldclaims/fieldclaims/internal/domain/entity"
)

func TestIDList(t *testing.T) {
	tests := []struct {
		name    string
		in      []int64
		want    []int64
		wantErr bool
	}{
		{"dedupes preserving order", []int64{3, 1, 3, 2, 1}, []int64{3, 1, 2}, false},
		{"single id", []int64{7}, []int64{7}, false},
		{"empty list", []int64{}, nil, true},
		{"zero id", []int64{1, 0}, nil, true},
		{"negative id", []int64{-5}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IDList("unit_ids", tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, entity.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnum(t *testing.T) {
	got, err := Enum("tier", "  Prime ", entity.ValidTiers)
	require.NoError(t, err)
	assert.Equal(t, entity.TierPrime, got)

	_, err = Enum("tier", "contractor", entity.ValidTiers)
	require.Error(t, err)
	assert.True(t, entity.IsValidation(err))
}

func TestDate(t *testing.T) {
	d, err := Date("work_date", "2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, 2026, d.Year())
	assert.Equal(t, 15, d.Day())

	_, err = Date("work_date", "15/03/2026")
	require.Error(t, err)
}

func TestPositiveDecimal(t *testing.T) {
	d, err := PositiveDecimal("quantity", "2.5")
	require.NoError(t, err)
	assert.Equal(t, "2.5", d.String())

	_, err = PositiveDecimal("quantity", "0")
	require.Error(t, err)

	_, err = PositiveDecimal("quantity", "-1")
	require.Error(t, err)

	_, err = PositiveDecimal("quantity", "two")
	require.Error(t, err)
}

func TestRate(t *testing.T) {
	d, err := Rate("retention_rate", "0.1")
	require.NoError(t, err)
	assert.Equal(t, "0.1", d.String())

	d, err = Rate("retention_rate", "")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = Rate("retention_rate", "1")
	require.Error(t, err)

	_, err = Rate("retention_rate", "-0.05")
	require.Error(t, err)
}

func TestString_StripsControlChars(t *testing.T) {
	assert.Equal(t, "pole 12", String(" pole\x00 12\x1f "))
}

func TestEvidence(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		ev, err := Evidence(&EvidenceInput{
			GPS:    &GPSInput{Latitude: 40.1, Longitude: -105.2, Accuracy: 4.5},
			Photos: []PhotoInput{{FileKey: "ph-1"}, {FileKey: "ph-2", Caption: "trench"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, ev.PhotoCount())
		assert.True(t, ev.HasGPS())
		assert.True(t, ev.Satisfied())
	})

	t.Run("nil payload", func(t *testing.T) {
		ev, err := Evidence(nil)
		require.NoError(t, err)
		assert.False(t, ev.Satisfied())
	})

	t.Run("latitude out of range", func(t *testing.T) {
		_, err := Evidence(&EvidenceInput{GPS: &GPSInput{Latitude: 91}})
		require.Error(t, err)
	})

	t.Run("photo without file key", func(t *testing.T) {
		_, err := Evidence(&EvidenceInput{Photos: []PhotoInput{{Caption: "no key"}}})
		require.Error(t, err)
	})

	t.Run("waiver requires reason", func(t *testing.T) {
		_, err := Evidence(&EvidenceInput{Waived: true})
		require.Error(t, err)

		ev, err := Evidence(&EvidenceInput{Waived: true, WaiverReason: "site demolished"})
		require.NoError(t, err)
		assert.True(t, ev.Satisfied())
	})
}

func TestPerformer(t *testing.T) {
	p, err := Performer(PerformerInput{Tier: "sub", WorkCategory: "electrical", CrewSize: 3})
	require.NoError(t, err)
	assert.Equal(t, entity.TierSub, p.Tier)

	_, err = Performer(PerformerInput{Tier: "sub", CrewSize: 0})
	require.Error(t, err)

	_, err = Performer(PerformerInput{Tier: "boss", CrewSize: 1})
	require.Error(t, err)
}
