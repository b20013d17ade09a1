package eer

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// parseXMLMetadata collects <item name="...">value</item> pairs from
// the vendor XML blob, at any nesting depth. Malformed XML yields
// whatever pairs were seen before the error; side metadata is
// optional throughout, so there is nothing to report.
func parseXMLMetadata(doc []byte) map[string]string {
	items := make(map[string]string)
	dec := xml.NewDecoder(bytes.NewReader(doc))

	var current string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "item" {
				for _, a := range t.Attr {
					if a.Name.Local == "name" {
						current = a.Value
					}
				}
			}
		case xml.CharData:
			if current == "" {
				continue
			}
			if v := strings.TrimSpace(string(t)); v != "" {
				items[current] = v
			}
		case xml.EndElement:
			if t.Name.Local == "item" {
				current = ""
			}
		}
	}
	return items
}
