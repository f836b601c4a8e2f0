package tdms

import (
	"math/bits"
	"time"
)

// TDMS timestamps count from the LabVIEW epoch, not the Unix one.
var tdmsEpoch = time.Date(1904, time.January, 1, 0, 0, 0, 0, time.UTC)

// readTimestamp decodes a 128-bit TDMS timestamp: an unsigned 64-bit
// count of 2^-64 second fractions and a signed 64-bit count of whole
// seconds since 1904-01-01T00:00:00 UTC. Little-endian files store the
// fractions first; big-endian files store the seconds first.
func readTimestamp(r *reader) (time.Time, error) {
	var secs, frac uint64
	var err error
	if r.big() {
		if secs, err = r.uint64(); err != nil {
			return time.Time{}, err
		}
		if frac, err = r.uint64(); err != nil {
			return time.Time{}, err
		}
	} else {
		if frac, err = r.uint64(); err != nil {
			return time.Time{}, err
		}
		if secs, err = r.uint64(); err != nil {
			return time.Time{}, err
		}
	}
	return timeFromParts(int64(secs), frac), nil
}

// timeFromParts converts the on-disk pair to a UTC time with
// microsecond precision, which is all the downstream containers keep.
func timeFromParts(secs int64, frac uint64) time.Time {
	// (frac * 1e6) >> 64 without overflowing.
	micros, _ := bits.Mul64(frac, 1_000_000)
	return tdmsEpoch.Add(time.Duration(secs)*time.Second + time.Duration(micros)*time.Microsecond)
}
