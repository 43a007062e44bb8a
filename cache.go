package cod

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// cacheVersion is the schema version written to cache files.
const cacheVersion = 1

// CacheError reports a cache file that could not be encoded or decoded.
type CacheError struct {
	Path string
	Err  error
}

func (e *CacheError) Error() string {
	if e.Path == "" {
		return "cod cache: " + e.Err.Error()
	}
	return "cod cache " + e.Path + ": " + e.Err.Error()
}

func (e *CacheError) Unwrap() error { return e.Err }

type cacheFile struct {
	Version int           `yaml:"version"`
	Objects []cacheObject `yaml:"objects"`
}

type cacheObject struct {
	Name      string          `yaml:"name"`
	Variables []cacheVariable `yaml:"variables,omitempty"`
	Objects   []cacheObject   `yaml:"objects,omitempty"`
}

// cacheVariable tags its value with the key of the active kind. Array
// elements carry no name; they take the name of the enclosing variable.
type cacheVariable struct {
	Name   string          `yaml:"name,omitempty"`
	Int    *int            `yaml:"int,omitempty"`
	Float  *float64        `yaml:"float,omitempty"`
	String *string         `yaml:"string,omitempty"`
	Array  []cacheVariable `yaml:"array,omitempty"`
	// IsArray keeps empty arrays distinct from a missing value.
	IsArray bool `yaml:"is_array,omitempty"`
}

// CachePath returns the cache file path for a COD source file: same
// directory and stem, with ext as extension.
func CachePath(source, ext string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + ext
}

// EncodeCache serializes the object tree of doc.
func EncodeCache(doc *Document) ([]byte, error) {
	file := cacheFile{Version: cacheVersion, Objects: make([]cacheObject, len(doc.Objects))}
	for i, obj := range doc.Objects {
		file.Objects[i] = encodeObject(obj)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&file); err != nil {
		return nil, &CacheError{Err: err}
	}
	if err := enc.Close(); err != nil {
		return nil, &CacheError{Err: err}
	}
	return buf.Bytes(), nil
}

func encodeObject(obj *Object) cacheObject {
	out := cacheObject{Name: obj.Name}
	if len(obj.Variables) > 0 {
		out.Variables = make([]cacheVariable, len(obj.Variables))
		for i, v := range obj.Variables {
			out.Variables[i] = encodeVariable(v, true)
		}
	}
	if len(obj.Objects) > 0 {
		out.Objects = make([]cacheObject, len(obj.Objects))
		for i, child := range obj.Objects {
			out.Objects[i] = encodeObject(child)
		}
	}
	return out
}

func encodeVariable(v Variable, named bool) cacheVariable {
	var out cacheVariable
	if named {
		out.Name = v.Name
	}
	switch x := v.Value.(type) {
	case Int:
		n := int(x)
		out.Int = &n
	case Float:
		f := float64(x)
		out.Float = &f
	case String:
		s := string(x)
		out.String = &s
	case Array:
		out.IsArray = true
		out.Array = make([]cacheVariable, len(x))
		for i, e := range x {
			out.Array[i] = encodeVariable(e, false)
		}
	case nil:
		s := ""
		out.String = &s
	default:
		panic(fmt.Sprintf("cod: unexpected value type %T", x))
	}
	return out
}

// DecodeCache parses a serialized object tree.
func DecodeCache(data []byte) (*Document, error) {
	var file cacheFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, &CacheError{Err: err}
	}
	if file.Version != cacheVersion {
		return nil, &CacheError{Err: fmt.Errorf("unsupported cache version %d", file.Version)}
	}
	doc := &Document{Objects: make([]*Object, 0, len(file.Objects))}
	for _, co := range file.Objects {
		obj, err := decodeObject(co)
		if err != nil {
			return nil, &CacheError{Err: err}
		}
		doc.Objects = append(doc.Objects, obj)
	}
	return doc, nil
}

func decodeObject(co cacheObject) (*Object, error) {
	obj := &Object{Name: co.Name}
	if len(co.Variables) > 0 {
		obj.Variables = make([]Variable, len(co.Variables))
		for i, cv := range co.Variables {
			v, err := decodeVariable(cv, cv.Name)
			if err != nil {
				return nil, fmt.Errorf("object %s: %w", co.Name, err)
			}
			obj.Variables[i] = v
		}
	}
	if len(co.Objects) > 0 {
		obj.Objects = make([]*Object, len(co.Objects))
		for i, cc := range co.Objects {
			child, err := decodeObject(cc)
			if err != nil {
				return nil, fmt.Errorf("object %s: %w", co.Name, err)
			}
			obj.Objects[i] = child
		}
	}
	return obj, nil
}

func decodeVariable(cv cacheVariable, name string) (Variable, error) {
	set := 0
	for _, present := range []bool{cv.Int != nil, cv.Float != nil, cv.String != nil, cv.IsArray || cv.Array != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return Variable{}, fmt.Errorf("variable %s: expected exactly one value, found %d", name, set)
	}
	switch {
	case cv.Int != nil:
		return Variable{Name: name, Value: Int(*cv.Int)}, nil
	case cv.Float != nil:
		return Variable{Name: name, Value: Float(*cv.Float)}, nil
	case cv.String != nil:
		return Variable{Name: name, Value: String(*cv.String)}, nil
	}
	elems := make(Array, len(cv.Array))
	for i, ce := range cv.Array {
		e, err := decodeVariable(ce, name)
		if err != nil {
			return Variable{}, err
		}
		elems[i] = e
	}
	return Variable{Name: name, Value: elems}, nil
}

// WriteCache writes the cache file for doc at path. The file is written
// under a temporary name and renamed into place, so readers never see a
// partial cache.
func WriteCache(path string, doc *Document) error {
	data, err := EncodeCache(doc)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// ReadCache reads a cache file written by WriteCache.
func ReadCache(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	doc, err := DecodeCache(data)
	if err != nil {
		var ce *CacheError
		if errors.As(err, &ce) {
			ce.Path = path
		}
		return nil, err
	}
	doc.FromCache = true
	return doc, nil
}

// Load decodes a COD file. If a cache file exists next to it, the cache is
// returned and the file itself is never read; otherwise the file is parsed
// and the cache is written before returning.
func (p *Parser) Load(path string) (*Document, error) {
	if !p.useCache {
		return p.ParseFile(path)
	}
	cachePath := CachePath(path, p.cacheExt)
	_, err := os.Stat(cachePath)
	switch {
	case err == nil:
		p.logger.Info("loading COD cache", zap.String("source", path), zap.String("cache", cachePath))
		doc, err := ReadCache(cachePath)
		if err != nil {
			return nil, err
		}
		doc.Source = path
		return doc, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to stat cache: %w", err)
	}

	doc, err := p.ParseFile(path)
	if err != nil {
		return nil, err
	}
	if n := len(doc.Diagnostics); n > 0 {
		p.logger.Info("skipped unrecognized COD lines", zap.String("source", path), zap.Int("count", n))
	}
	if err := WriteCache(cachePath, doc); err != nil {
		return nil, err
	}
	p.logger.Info("wrote COD cache", zap.String("source", path), zap.String("cache", cachePath))
	return doc, nil
}
