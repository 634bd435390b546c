package shipping

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
)

func TestServiceQuote(t *testing.T) {
	svc, err := NewService(NewCalculator(DefaultPolicy()), &countingRateCards{card: card("55", "10")})
	require.NoError(t, err)
	from, to := uuid.New(), uuid.New()

	result, err := svc.Quote(context.Background(), FeeInput{
		ActualWeightKg: d("1.5"),
		LengthCm:       d("20"),
		WidthCm:        d("20"),
		HeightCm:       d("35"),
		FromZoneID:     from,
		ToZoneID:       to,
	})
	require.NoError(t, err)
	require.True(t, result.TotalFee.Equal(d("73")))

	parcel, err := svc.QuoteParcel(context.Background(), from, to, Parcel{ActualWeightKg: d("0.5")})
	require.NoError(t, err)
	require.True(t, parcel.TotalFee.Equal(d("55")))
}

func TestServiceQuoteErrors(t *testing.T) {
	_, err := NewService(nil, &countingRateCards{})
	require.Error(t, err)

	next := &countingRateCards{err: noActiveRateCard(uuid.Nil, uuid.Nil)}
	svc, err := NewService(NewCalculator(DefaultPolicy()), next)
	require.NoError(t, err)

	_, err = svc.Quote(context.Background(), FeeInput{ActualWeightKg: d("1")})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	require.Zero(t, next.calls)

	_, err = svc.Quote(context.Background(), FeeInput{ActualWeightKg: d("1"), FromZoneID: uuid.New(), ToZoneID: uuid.New()})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeBusinessRule))
}
