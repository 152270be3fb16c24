package nrbf

import (
	"io"
	"time"

	"github.com/moriyoshi/dotnetserde/internal/xerr"
)

// TimezoneLocalizer converts a naive ("Local"-kind) DateTime into the
// caller's chosen timezone; DateTime kind 2 is meaningless without one.
type TimezoneLocalizer func(time.Time) time.Time

// utcEpochOrdinalBase is day 1 of the proleptic Gregorian calendar (year 1,
// month 1, day 1), the zero point NRBF tick counts are measured from.
var utcEpochOrdinalBase = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

func decodeDateTime(raw uint64, localize TimezoneLocalizer) (time.Time, error) {
	kind := raw >> 62
	ticks := raw & 0x3FFFFFFFFFFFFFFF

	microsecond := (ticks % 10000000) / 10
	ticks /= 10000000
	second := ticks % 60
	ticks /= 60
	minute := ticks % 60
	ticks /= 60
	hour := ticks % 24
	ticks /= 24

	date := utcEpochOrdinalBase.AddDate(0, 0, int(ticks))
	dt := time.Date(date.Year(), date.Month(), date.Day(), int(hour), int(minute), int(second), int(microsecond)*1000, time.UTC)

	switch kind {
	case 0:
		return dt, nil
	case 1:
		return dt, nil
	case 2:
		if localize == nil {
			return dt, nil
		}
		return localize(dt), nil
	default:
		return time.Time{}, &xerr.InvalidDateTimeKind{Kind: kind}
	}
}

func decodeTimeSpan(raw int64) time.Duration {
	return time.Duration(raw/10) * time.Microsecond
}

// UntypedPrimitiveValueReader reads the wire representation for one
// PrimitiveType, yielding a single Go value. Decimal and Null are reported
// as NotImplemented. Timezone localization of Local-kind DateTime values is
// injected through Localizer.
type UntypedPrimitiveValueReader struct {
	Localizer TimezoneLocalizer
}

func (u *UntypedPrimitiveValueReader) Read(pt PrimitiveType, r io.Reader) (any, error) {
	switch pt {
	case PrimitiveTypeBoolean:
		b, err := readExact(r, 1)
		if err != nil {
			return nil, err
		}
		return b[0] != 0, nil
	case PrimitiveTypeByte:
		b, err := readExact(r, 1)
		if err != nil {
			return nil, err
		}
		return b[0], nil
	case PrimitiveTypeChar:
		v, err := readInt16LE(r)
		return v, err
	case PrimitiveTypeDecimal:
		return nil, &xerr.NotImplemented{What: "Decimal primitive read"}
	case PrimitiveTypeDouble:
		return readFloat64LE(r)
	case PrimitiveTypeInt16:
		return readInt16LE(r)
	case PrimitiveTypeInt32:
		return readInt32LE(r)
	case PrimitiveTypeInt64:
		return readInt64LE(r)
	case PrimitiveTypeSByte:
		b, err := readExact(r, 1)
		if err != nil {
			return nil, err
		}
		return int8(b[0]), nil
	case PrimitiveTypeSingle:
		return readFloat32LE(r)
	case PrimitiveTypeTimeSpan:
		raw, err := readInt64LE(r)
		if err != nil {
			return nil, err
		}
		return decodeTimeSpan(raw), nil
	case PrimitiveTypeDateTime:
		raw, err := readUint64LE(r)
		if err != nil {
			return nil, err
		}
		return decodeDateTime(raw, u.Localizer)
	case PrimitiveTypeUInt16:
		return readUint16LE(r)
	case PrimitiveTypeUInt32:
		return readUint32LE(r)
	case PrimitiveTypeUInt64:
		return readUint64LE(r)
	case PrimitiveTypeNull:
		return nil, &xerr.NotImplemented{What: "Null primitive read"}
	case PrimitiveTypeString:
		return readLengthPrefixedString(r)
	default:
		return nil, &xerr.InvalidStream{Reason: "unknown primitive type"}
	}
}
