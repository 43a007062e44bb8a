// Package cod decodes COD files, the byte-negated object description
// language of a legacy city-building game, into an object tree.
package cod

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// DefaultCacheExtension is the extension of the cache file written next to
// a decoded source file.
const DefaultCacheExtension = ".yaml"

// Parser provides configurable decoding of COD files.
type Parser struct {
	logger     *zap.Logger
	useCache   bool
	cacheExt   string
	skip       []string
	directives []directive
}

// NewParser creates a new Parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		logger:     zap.NewNop(),
		useCache:   true,
		cacheExt:   DefaultCacheExtension,
		skip:       DefaultSkipDirectives,
		directives: buildDirectives(DefaultSkipDirectives),
	}
}

// WithLogger configures the logger. A nil logger disables logging.
func (p *Parser) WithLogger(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	p.logger = logger
	return p
}

// WithCache enables or disables reading and writing cache files in Load.
func (p *Parser) WithCache(enabled bool) *Parser {
	p.useCache = enabled
	return p
}

// WithCacheExtension configures the cache file extension, including the dot.
func (p *Parser) WithCacheExtension(ext string) *Parser {
	p.cacheExt = ext
	return p
}

// WithSkipDirectives configures the directive keywords treated as no-ops.
func (p *Parser) WithSkipDirectives(keywords ...string) *Parser {
	p.skip = keywords
	p.directives = buildDirectives(keywords)
	return p
}

// ParseDocument decodes an encrypted COD stream.
func (p *Parser) ParseDocument(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read COD data: %w", err)
	}
	return p.ParseBytes(data), nil
}

// ParseBytes decodes encrypted COD bytes.
func (p *Parser) ParseBytes(data []byte) *Document {
	return p.ParseLines(Lex(data))
}

// ParseText decodes plaintext that is already decrypted.
func (p *Parser) ParseText(text string) *Document {
	return p.ParseLines(SplitLines(text))
}

// ParseFile decodes a COD file without consulting the cache.
func (p *Parser) ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read COD file: %w", err)
	}
	doc := p.ParseBytes(data)
	doc.Source = path
	return doc, nil
}

// ParseLines builds the object tree from cleaned lines.
func (p *Parser) ParseLines(lines []Line) *Document {
	s := newState(p)
	for _, line := range lines {
		s.line = line
		d, m, ok := classify(p.directives, line.Text)
		if !ok {
			s.diagnose(ReasonUnrecognized)
			continue
		}
		d.handle(s, m)
	}
	if len(s.stack) > 0 {
		open := make([]string, len(s.stack))
		for i, e := range s.stack {
			open[i] = fmt.Sprintf("%s (line indent %d)", e.obj.Name, e.indent)
		}
		p.logger.Debug("objects left open at end of input",
			zap.Int("depth", len(s.stack)),
			zap.Strings("open", open))
	}
	return s.doc
}
