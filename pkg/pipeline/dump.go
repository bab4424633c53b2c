package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/chazu/lathe/pkg/csg"
)

// Dump writes a text listing of the products: terms, then chains.
func (p *Products) Dump(w io.Writer) error {
	if p == nil {
		_, err := io.WriteString(w, "no products\n")
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "outcome: %s\n", p.Outcome)
	fmt.Fprintf(&b, "mode: %s\n", p.Mode)
	fmt.Fprintf(&b, "raw term: %s\n", p.Raw)
	fmt.Fprintf(&b, "normalized term: %s\n", p.Norm)
	writeTerms(&b, "highlight terms", p.Highlights)
	writeTerms(&b, "background terms", p.Backgrounds)
	writeChain(&b, "main chain", p.Main)
	writeChain(&b, "highlight chain", p.Highlight)
	writeChain(&b, "background chain", p.Background)
	for _, warn := range p.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", warn)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeTerms(b *strings.Builder, name string, terms []*csg.Term) {
	fmt.Fprintf(b, "%s: %d\n", name, len(terms))
	for _, t := range terms {
		fmt.Fprintf(b, "\t%s\n", t)
	}
}

func writeChain(b *strings.Builder, name string, c *csg.Chain) {
	if c == nil {
		fmt.Fprintf(b, "%s: none\n", name)
		return
	}
	fmt.Fprintf(b, "%s: %d entries\n", name, c.Len())
	for _, line := range strings.Split(c.String(), "\n") {
		fmt.Fprintf(b, "\t%s\n", line)
	}
}

// Record is the serializable summary of a products bundle.
type Record struct {
	Outcome    string           `cbor:"1,keyasint" json:"outcome"`
	Mode       string           `cbor:"2,keyasint" json:"mode"`
	Raw        string           `cbor:"3,keyasint" json:"raw"`
	Normalized string           `cbor:"4,keyasint" json:"normalized"`
	Main       *csg.ChainRecord `cbor:"5,keyasint" json:"main"`
	Highlight  *csg.ChainRecord `cbor:"6,keyasint" json:"highlight"`
	Background *csg.ChainRecord `cbor:"7,keyasint" json:"background"`
	Warnings   []string         `cbor:"8,keyasint,omitempty" json:"warnings,omitempty"`
}

// Record converts the products to their serializable form.
func (p *Products) Record() *Record {
	r := &Record{
		Outcome:    p.Outcome.String(),
		Mode:       p.Mode.String(),
		Raw:        p.Raw.String(),
		Normalized: p.Norm.String(),
		Main:       p.Main.Record(),
		Highlight:  p.Highlight.Record(),
		Background: p.Background.Record(),
	}
	for _, w := range p.Warnings {
		r.Warnings = append(r.Warnings, w.Message)
	}
	return r
}

// MarshalCBOR encodes the products record with the canonical chain
// encoding.
func (p *Products) MarshalCBOR() ([]byte, error) {
	return csg.Marshal(p.Record())
}
