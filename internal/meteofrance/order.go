package meteofrance

import "encoding/json"

// The API has shipped the order id under several shapes over time. Decode
// all known ones and take the first present, in priority order:
//
//	{"return": "..."}
//	{"elaboreProduitAvecDemandeResponse": {"return": "..."}}
//	{"id-cmde": "..."}
type orderResponse struct {
	Return  json.RawMessage `json:"return"`
	Wrapped struct {
		Return json.RawMessage `json:"return"`
	} `json:"elaboreProduitAvecDemandeResponse"`
	IDCmde json.RawMessage `json:"id-cmde"`
}

// extractOrderID sniffs the order identifier out of a decoded order
// response. Each candidate field must hold a scalar (string or number).
func extractOrderID(body []byte) (string, bool) {
	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", false
	}
	for _, raw := range []json.RawMessage{resp.Return, resp.Wrapped.Return, resp.IDCmde} {
		if id, ok := scalarString(raw); ok {
			return id, true
		}
	}
	return "", false
}

func scalarString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}
