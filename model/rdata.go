package model

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// RecordData is the payload of one record, tagged with its record type. The
// field layout depends on the type and is not interpreted by iteration or
// grouping.
type RecordData struct {
	Type   string         `json:"type" yaml:"type"`
	Fields map[string]any `json:"fields" yaml:"fields"`
}

// Equal reports whether both payloads carry the same type and fields. Field
// values are compared by value, not Go type, so payloads decoded from JSON or
// YAML equal the ones they were encoded from.
func (d RecordData) Equal(other RecordData) bool {
	return d.Type == other.Type && equalValues(d.Fields, other.Fields)
}

func equalValues(a, b any) bool {
	return reflect.DeepEqual(canonical(a), canonical(b))
}

// canonical maps numbers to int64 when integral and float64 otherwise, maps
// to map[string]any and slices to []any. Nil and empty maps are the same.
func canonical(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u := rv.Uint(); u <= math.MaxInt64 {
			return int64(u)
		}
		return rv.Float()
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
			return int64(f)
		}
		return f
	case reflect.Map:
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[fmt.Sprint(iter.Key().Interface())] = canonical(iter.Value().Interface())
		}
		return m
	case reflect.Slice, reflect.Array:
		list := make([]any, rv.Len())
		for i := range list {
			list[i] = canonical(rv.Index(i).Interface())
		}
		return list
	}
	return v
}

// String renders the payload in zone file presentation format.
func (d RecordData) String() string {
	switch d.Type {
	case "A", "AAAA":
		return fmt.Sprint(d.Fields["address"])
	case "CNAME":
		return fmt.Sprint(d.Fields["cname"])
	case "NS":
		return fmt.Sprint(d.Fields["nsdname"])
	case "PTR":
		return fmt.Sprint(d.Fields["ptrdname"])
	case "TXT":
		return strconv.Quote(fmt.Sprint(d.Fields["txtdata"]))
	case "MX":
		return fmt.Sprintf("%v %v", d.Fields["preference"], d.Fields["exchange"])
	case "SRV":
		return fmt.Sprintf("%v %v %v %v", d.Fields["priority"], d.Fields["weight"], d.Fields["port"], d.Fields["target"])
	}
	if rdata, ok := d.Fields["rdata"]; ok {
		return fmt.Sprint(rdata)
	}
	return fmt.Sprint(d.Fields)
}

func AData(address string) RecordData {
	return RecordData{Type: "A", Fields: map[string]any{"address": address}}
}

func AAAAData(address string) RecordData {
	return RecordData{Type: "AAAA", Fields: map[string]any{"address": address}}
}

func CNAMEData(cname string) RecordData {
	return RecordData{Type: "CNAME", Fields: map[string]any{"cname": cname}}
}

func NSData(nsdname string) RecordData {
	return RecordData{Type: "NS", Fields: map[string]any{"nsdname": nsdname}}
}

func PTRData(ptrdname string) RecordData {
	return RecordData{Type: "PTR", Fields: map[string]any{"ptrdname": ptrdname}}
}

func TXTData(txtdata string) RecordData {
	return RecordData{Type: "TXT", Fields: map[string]any{"txtdata": txtdata}}
}

func MXData(preference int, exchange string) RecordData {
	return RecordData{Type: "MX", Fields: map[string]any{"preference": preference, "exchange": exchange}}
}

func SRVData(priority, weight, port int, target string) RecordData {
	return RecordData{Type: "SRV", Fields: map[string]any{
		"priority": priority,
		"weight":   weight,
		"port":     port,
		"target":   target,
	}}
}

// ParseRecordData parses rdata in presentation format for the given record
// type. Types without a dedicated constructor keep the normalized text under
// the "rdata" field.
func ParseRecordData(typ, text string) (RecordData, error) {
	typ = strings.ToUpper(strings.TrimSpace(typ))
	if _, ok := dns.StringToType[typ]; !ok {
		return RecordData{}, fmt.Errorf("unknown record type %q", typ)
	}
	rr, err := dns.NewRR(fmt.Sprintf("rdata.invalid. 0 IN %s %s", typ, text))
	if err != nil {
		return RecordData{}, fmt.Errorf("failed to parse %s rdata %q: %w", typ, text, err)
	}
	if rr == nil {
		return RecordData{}, fmt.Errorf("empty %s rdata", typ)
	}
	switch v := rr.(type) {
	case *dns.A:
		return AData(v.A.String()), nil
	case *dns.AAAA:
		return AAAAData(v.AAAA.String()), nil
	case *dns.CNAME:
		return CNAMEData(v.Target), nil
	case *dns.NS:
		return NSData(v.Ns), nil
	case *dns.PTR:
		return PTRData(v.Ptr), nil
	case *dns.TXT:
		return TXTData(strings.Join(v.Txt, "")), nil
	case *dns.MX:
		return MXData(int(v.Preference), v.Mx), nil
	case *dns.SRV:
		return SRVData(int(v.Priority), int(v.Weight), int(v.Port), v.Target), nil
	}
	rdata := strings.TrimPrefix(rr.String(), rr.Header().String())
	return RecordData{Type: typ, Fields: map[string]any{"rdata": rdata}}, nil
}
