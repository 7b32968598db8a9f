// Package serialize implements the persisted-configuration collaborator
// (§6, "Persisted state"): a textual `<field>\n<value>\n` format with
// `#`-prefixed comment lines, an explicit version number, and a CRC16
// trailer over the encoded body. It is grounded on the original source's
// own versioned, checksummed wire conventions (codec.cpp's libbase::vcs
// version stamp) and on the teacher's own CRC16 usage (m17/crc.go), here
// applied to a configuration document instead of a packet.
package serialize

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sigurn/crc16"
)

// DocumentVersion is the current on-disk format version. Unmarshal
// rejects documents carrying a version it does not recognise.
const DocumentVersion = 1

var crcParams = crc16.Params{
	Poly: 0x5935,
	Init: 0xffff,
	Name: "TURBOSIM",
}

// Document is an ordered list of field/value pairs, the unit the
// textual format (de)serialises. Field order is preserved across a
// Marshal/Unmarshal round trip.
type Document struct {
	Version int
	fields  []string
	values  map[string]string
}

// NewDocument builds an empty document at the current format version.
func NewDocument() *Document {
	return &Document{Version: DocumentVersion, values: make(map[string]string)}
}

// Set stores value under field, appending field to the write order the
// first time it is seen.
func (d *Document) Set(field, value string) {
	if d.values == nil {
		d.values = make(map[string]string)
	}
	if _, ok := d.values[field]; !ok {
		d.fields = append(d.fields, field)
	}
	d.values[field] = value
}

// SetInt is Set for an integer value.
func (d *Document) SetInt(field string, v int) { d.Set(field, strconv.Itoa(v)) }

// SetFloat64 is Set for a float64 value.
func (d *Document) SetFloat64(field string, v float64) {
	d.Set(field, strconv.FormatFloat(v, 'g', -1, 64))
}

// SetBool is Set for a boolean value.
func (d *Document) SetBool(field string, v bool) { d.Set(field, strconv.FormatBool(v)) }

// Get returns field's value and whether it was present.
func (d *Document) Get(field string) (string, bool) {
	v, ok := d.values[field]
	return v, ok
}

// Int parses field as an integer.
func (d *Document) Int(field string) (int, error) {
	v, ok := d.values[field]
	if !ok {
		return 0, fmt.Errorf("serialize: field %q not present", field)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("serialize: field %q is not an integer: %w", field, err)
	}
	return n, nil
}

// Float64 parses field as a float64.
func (d *Document) Float64(field string) (float64, error) {
	v, ok := d.values[field]
	if !ok {
		return 0, fmt.Errorf("serialize: field %q not present", field)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("serialize: field %q is not a float: %w", field, err)
	}
	return f, nil
}

// Bool parses field as a boolean.
func (d *Document) Bool(field string) (bool, error) {
	v, ok := d.values[field]
	if !ok {
		return false, fmt.Errorf("serialize: field %q not present", field)
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("serialize: field %q is not a bool: %w", field, err)
	}
	return b, nil
}

// Fields returns the field names in write order.
func (d *Document) Fields() []string {
	out := make([]string, len(d.fields))
	copy(out, d.fields)
	return out
}

func (d *Document) body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "version\n%d\n", d.Version)
	for _, f := range d.fields {
		fmt.Fprintf(&b, "%s\n%s\n", f, d.values[f])
	}
	return b.String()
}

// Marshal writes the textual form: a leading comment line, the version
// and field/value lines, and a trailing crc16 field whose value is the
// checksum of the version and field/value lines; the leading comment
// line is not covered by it.
func (d *Document) Marshal(w io.Writer) error {
	body := d.body()
	table := crc16.MakeTable(crcParams)
	sum := crc16.Checksum([]byte(body), table)
	if _, err := fmt.Fprintf(w, "# turbosim persisted configuration\n%scrc16\n%04x\n", body, sum); err != nil {
		return fmt.Errorf("serialize: write: %w", err)
	}
	return nil
}

// Unmarshal parses the textual form, validating the crc16 trailer
// against the body that precedes it and the version field against
// DocumentVersion.
func Unmarshal(r io.Reader) (*Document, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("serialize: read: %w", err)
	}
	if len(lines) < 4 || len(lines)%2 != 0 {
		return nil, fmt.Errorf("serialize: malformed document: %d non-comment lines", len(lines))
	}

	trailerField, trailerValue := lines[len(lines)-2], lines[len(lines)-1]
	if trailerField != "crc16" {
		return nil, fmt.Errorf("serialize: expected crc16 trailer, found field %q", trailerField)
	}
	wantSum, err := strconv.ParseUint(trailerValue, 16, 16)
	if err != nil {
		return nil, fmt.Errorf("serialize: malformed crc16 trailer %q: %w", trailerValue, err)
	}

	var body strings.Builder
	pairs := lines[:len(lines)-2]
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(&body, "%s\n%s\n", pairs[i], pairs[i+1])
	}
	table := crc16.MakeTable(crcParams)
	gotSum := crc16.Checksum([]byte(body.String()), table)
	if uint16(wantSum) != gotSum {
		return nil, fmt.Errorf("serialize: crc16 mismatch: document says %04x, computed %04x", wantSum, gotSum)
	}

	doc := NewDocument()
	if pairs[0] != "version" {
		return nil, fmt.Errorf("serialize: expected leading version field, found %q", pairs[0])
	}
	version, err := strconv.Atoi(pairs[1])
	if err != nil {
		return nil, fmt.Errorf("serialize: malformed version %q: %w", pairs[1], err)
	}
	if version != DocumentVersion {
		return nil, fmt.Errorf("serialize: unsupported document version %d, want %d", version, DocumentVersion)
	}
	doc.Version = version
	for i := 2; i+1 < len(pairs); i += 2 {
		doc.Set(pairs[i], pairs[i+1])
	}
	return doc, nil
}
