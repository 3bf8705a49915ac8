package extractors

import (
	"strconv"
	"strings"
	"time"
)

// Record is one serialized row keyed by column name.
type Record map[string]string

// ParseRecords reads the "Row <n>: col: value, ..." lines of a serialized segment.
// The header line and unrelated lines are ignored.
func ParseRecords(text string) []Record {
	var records []Record
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Row ") {
			continue
		}
		_, body, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		record := make(Record)
		for _, field := range strings.Split(body, ", ") {
			name, value, found := strings.Cut(field, ": ")
			if !found {
				continue
			}
			record[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
		records = append(records, record)
	}
	return records
}

// Measure is a numeric feature that may be absent from a record.
type Measure struct {
	Value float64
	OK    bool
}

// FlowFeatures are the signals a brute-force flow is judged on.
type FlowFeatures struct {
	Protocol        string
	SourcePort      Measure
	DestinationPort Measure
	Packets         Measure
	Bytes           Measure
	Duration        time.Duration
	HasDuration     bool
}

var protocolNumbers = map[string]string{"6": "TCP", "17": "UDP", "1": "ICMP"}

// FlowFeaturesOf derives features from a record. Flow_Duration is read as microseconds.
func FlowFeaturesOf(r Record) FlowFeatures {
	var f FlowFeatures

	if p, ok := r.lookup("Protocol", "protocol", "Proto"); ok {
		p = strings.TrimSuffix(p, ".0")
		if name, known := protocolNumbers[p]; known {
			f.Protocol = name
		} else {
			f.Protocol = strings.ToUpper(p)
		}
	}
	f.SourcePort = r.number("Source_Port", "Src_Port", "source_port")
	f.DestinationPort = r.number("Destination_Port", "Dst_Port", "destination_port")

	if d := r.number("Flow_Duration", "flow_duration"); d.OK {
		f.Duration = time.Duration(d.Value * float64(time.Microsecond))
		f.HasDuration = true
	}

	if total := r.number("Total_Packets", "packets"); total.OK {
		f.Packets = total
	} else {
		fwd, bwd := r.number("Total_Fwd_Packets"), r.number("Total_Backward_Packets")
		if fwd.OK || bwd.OK {
			f.Packets = Measure{Value: fwd.Value + bwd.Value, OK: true}
		}
	}

	switch {
	case r.number("Total_Bytes", "bytes").OK:
		f.Bytes = r.number("Total_Bytes", "bytes")
	case r.number("Total_Length_of_Fwd_Packets").OK || r.number("Total_Length_of_Bwd_Packets").OK:
		f.Bytes = Measure{Value: r.number("Total_Length_of_Fwd_Packets").Value + r.number("Total_Length_of_Bwd_Packets").Value, OK: true}
	case r.number("Flow_Bytes/s").OK && f.HasDuration:
		f.Bytes = Measure{Value: r.number("Flow_Bytes/s").Value * f.Duration.Seconds(), OK: true}
	default:
		fwdMean, bwdMean := r.number("Fwd_Packet_Length_Mean"), r.number("Bwd_Packet_Length_Mean")
		fwd, bwd := r.number("Total_Fwd_Packets"), r.number("Total_Backward_Packets")
		if fwdMean.OK && fwd.OK {
			f.Bytes = Measure{Value: fwdMean.Value*fwd.Value + bwdMean.Value*bwd.Value, OK: true}
		}
	}
	return f
}

func (r Record) lookup(names ...string) (string, bool) {
	for _, n := range names {
		if v, ok := r[n]; ok && v != "" && v != "NULL" {
			return v, true
		}
	}
	return "", false
}

func (r Record) number(names ...string) Measure {
	raw, ok := r.lookup(names...)
	if !ok {
		return Measure{}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Measure{}
	}
	return Measure{Value: v, OK: true}
}
