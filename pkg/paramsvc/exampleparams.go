package paramsvc

//go:generate go run github.com/raccoon-os/rccn-usr/cmd/paramgen -in exampleparams.go -out exampleparams_gen.go -pkg paramsvc

// ExampleParams is a declarative parameter set: each field's `param` tag
// carries the 32-bit hash PUS Service 20 addresses it by. exampleparams_gen.go
// is generated from this definition.
type ExampleParams struct {
	A uint16  `param:"0xABCDEF00"`
	B float32 `param:"0x00EFCDAB"`
	C int32   `param:"0xF00BA400"`
}
