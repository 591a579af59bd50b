package fallback

import "time"

// Data is one captured snapshot of the dataset.
type Data struct {
	Records      []map[string]any `json:"csvData"`
	Metadata     map[string]any   `json:"metadata"`
	CapturedAtMs int64            `json:"timestamp"` // epoch milliseconds
}

// CapturedAt returns the capture time.
func (d *Data) CapturedAt() time.Time {
	return time.UnixMilli(d.CapturedAtMs)
}

// Clone copies the records slice, every record map and the metadata map.
// Values nested deeper than one level are shared with d.
func (d *Data) Clone() *Data {
	if d == nil {
		return nil
	}
	out := &Data{
		Metadata:     copyMap(d.Metadata),
		CapturedAtMs: d.CapturedAtMs,
	}
	if d.Records != nil {
		out.Records = copyRecords(d.Records)
	}
	return out
}

func copyRecords(in []map[string]any) []map[string]any {
	out := make([]map[string]any, len(in))
	for i, r := range in {
		out[i] = copyMap(r)
	}
	return out
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
