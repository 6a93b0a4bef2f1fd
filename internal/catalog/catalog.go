// Package catalog holds the keyword-triggered supportive responses. The
// catalog is an ordered list: the first keyword that appears as a substring
// of the (lower-cased) message selects the response, so declaration order in
// responses.toml is load-bearing.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed responses.toml
var rawCatalog []byte

// placeholderName is Telegram's stand-in when a sender has no first name.
// Personalization is skipped for it.
const placeholderName = "friend"

type Entry struct {
	Keyword  string `toml:"keyword"`
	Response string `toml:"response"`
}

type Catalog struct {
	entries  []Entry
	fallback string
	welcome  string
	def      string
}

type document struct {
	Default   string  `toml:"default"`
	Welcome   string  `toml:"welcome"`
	Fallback  string  `toml:"fallback"`
	Responses []Entry `toml:"responses"`
}

func Load() (*Catalog, error) {
	var doc document
	if err := toml.Unmarshal(rawCatalog, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if doc.Default == "" {
		return nil, fmt.Errorf("catalog: default response is required")
	}
	if len(doc.Responses) == 0 {
		return nil, fmt.Errorf("catalog: no responses declared")
	}
	for i, e := range doc.Responses {
		if e.Keyword == "" || e.Response == "" {
			return nil, fmt.Errorf("catalog: entry %d is missing keyword or response", i)
		}
	}
	return &Catalog{
		entries:  doc.Responses,
		def:      doc.Default,
		welcome:  doc.Welcome,
		fallback: doc.Fallback,
	}, nil
}

func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Select returns the response for the first catalog keyword contained in
// text (case-insensitive), or the default response when nothing matches.
func (c *Catalog) Select(text string) string {
	lower := strings.ToLower(text)
	for _, e := range c.entries {
		if strings.Contains(lower, e.Keyword) {
			return e.Response
		}
	}
	return c.def
}

// ByType looks up an addiction type as an exact catalog keyword
// (case-insensitive), falling back to the default response. Used by the
// manual send-support trigger.
func (c *Catalog) ByType(addictionType string) string {
	key := strings.ToLower(strings.TrimSpace(addictionType))
	for _, e := range c.entries {
		if e.Keyword == key {
			return e.Response
		}
	}
	return c.def
}

// Personalize swaps the generic greeting prefixes for name-bearing ones.
// At most one substitution per prefix; the placeholder name is left alone.
func Personalize(response, firstName string) string {
	if firstName == "" || firstName == placeholderName {
		return response
	}
	response = strings.Replace(response, "Hey,", "Hey "+firstName+",", 1)
	response = strings.Replace(response, "Hi there,", "Hi "+firstName+",", 1)
	return response
}

func (c *Catalog) Default() string  { return c.def }
func (c *Catalog) Welcome() string  { return c.welcome }
func (c *Catalog) Fallback() string { return c.fallback }

// Keywords returns the match keywords in declaration order.
func (c *Catalog) Keywords() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Keyword
	}
	return out
}
