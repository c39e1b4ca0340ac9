package analytics

import "encoding/json"

// Normalize reshapes a raw upstream body into the uniform envelope for the
// given endpoint. Only the bandwidth endpoint needs help: the provider
// sometimes returns a bare single record with no {data: [...]} wrapper.
// Every other endpoint already arrives enveloped and passes through
// unchanged.
func Normalize(endpoint string, raw json.RawMessage) json.RawMessage {
	if endpoint != EndpointBandwidth {
		return raw
	}

	var probe struct {
		Data          json.RawMessage `json:"data"`
		Start         json.RawMessage `json:"start"`
		End           json.RawMessage `json:"end"`
		SiteBandwidth json.RawMessage `json:"siteBandwidth"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return mustMarshalEnvelope(EmptyEnvelope())
	}

	if isJSONArray(probe.Data) {
		// Already enveloped, empty or not.
		return raw
	}

	// No data array. A bare record has start, end and a defined
	// siteBandwidth; anything else resolves to the empty envelope.
	if isDefined(probe.Start) && isDefined(probe.End) && isDefined(probe.SiteBandwidth) {
		return mustMarshalEnvelope(Envelope{Data: []json.RawMessage{raw}})
	}
	return mustMarshalEnvelope(EmptyEnvelope())
}

func isJSONArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return b == '['
		}
	}
	return false
}

func isDefined(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	return string(raw) != "null"
}

func mustMarshalEnvelope(env Envelope) json.RawMessage {
	b, err := json.Marshal(env)
	if err != nil {
		// Envelope of raw messages cannot fail to marshal.
		return json.RawMessage(`{"data":[]}`)
	}
	return b
}
