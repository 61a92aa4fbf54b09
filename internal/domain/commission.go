package domain

import "errors"

var ErrInvalidFeeBps = errors.New("fee must be between 0 and 10000 basis points")

type Commission struct {
	PlatformFeeCents int64
	HostNetCents     int64
}

// ComputeFee splits a total into platform fee and host net using integer
// cent arithmetic. feeBps is the commission in basis points (1000 = 10%).
// The fee is rounded half-up; PlatformFeeCents + HostNetCents == totalCents
// holds for every input.
func ComputeFee(totalCents, feeBps int64) (Commission, error) {
	if feeBps < 0 || feeBps > 10000 {
		return Commission{}, ErrInvalidFeeBps
	}
	fee := (totalCents*feeBps + 5000) / 10000
	return Commission{
		PlatformFeeCents: fee,
		HostNetCents:     totalCents - fee,
	}, nil
}
