package types

import "ss2beacon-go/internal/beacon"

type SchemaInfo struct {
	Name         string `json:"name"`
	Length       int    `json:"length"`
	MsgType      int    `json:"msgtype"`
	MessageNum   int    `json:"messagenum"`
	MessageTotal int    `json:"messagetotal"`
	Fields       int    `json:"fields"`
}

type UIConfig struct {
	Type      string       `json:"type"`
	RunID     string       `json:"run_id"`
	Delimiter string       `json:"delimiter"`
	Source    string       `json:"source"`
	Schemas   []SchemaInfo `json:"schemas"`
}

func Schemas() []SchemaInfo {
	all := []*beacon.Schema{&beacon.SchemaA, &beacon.SchemaB, &beacon.SchemaC}
	out := make([]SchemaInfo, 0, len(all))
	for _, s := range all {
		out = append(out, SchemaInfo{
			Name:         s.Name,
			Length:       s.Length,
			MsgType:      s.MsgType,
			MessageNum:   s.MessageNum,
			MessageTotal: s.MessageTotal,
			Fields:       len(s.Fields),
		})
	}
	return out
}
