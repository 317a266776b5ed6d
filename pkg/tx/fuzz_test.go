package tx

import (
	"encoding/json"
	"testing"
)

// FuzzTxUnmarshal tests that arbitrary JSON input does not panic when
// unmarshaled into a Transaction struct and run through its derived methods.
func FuzzTxUnmarshal(f *testing.F) {
	f.Add([]byte(`{"inputs":[{"prevout":{"tx_id":"0000000000000000000000000000000000000000000000000000000000000000","index":0},"unlocking_script":"deadbeef"}],"outputs":[{"value":1000,"script":"6c6f636b"}]}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`null`))
	f.Add([]byte(`{"inputs":null,"outputs":null}`))
	f.Add([]byte(`{"inputs":[{"prevout":{"tx_id":"","index":0},"unlocking_script":""}],"outputs":[{"value":0}]}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		var transaction Transaction
		if err := json.Unmarshal(data, &transaction); err != nil {
			return
		}
		// If unmarshal succeeded, these must not panic.
		transaction.Hash()
		transaction.SigningBytes()
		transaction.Check()
		transaction.EstimateSigops()
		transaction.TotalOutputValue()
	})
}
