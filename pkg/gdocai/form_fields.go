package gdocai

import (
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"

	"github.com/gardar/cargointake/pkg/doctree"
)

// formFieldItems turns Form Parser fields of all pages into scalar key
// fields. Names lose surrounding space and a trailing colon; unnamed fields
// are skipped. Duplicates are kept so the resolver sees every occurrence.
func formFieldItems(doc *documentaipb.Document) []doctree.KeyValue {
	var items []doctree.KeyValue
	for _, page := range doc.GetPages() {
		for _, field := range page.GetFormFields() {
			key := strings.TrimSpace(textFromLayout(field.GetFieldName(), doc.GetText()))
			key = strings.TrimSpace(strings.TrimSuffix(key, ":"))
			if key == "" {
				continue
			}
			items = append(items, doctree.KeyValue{
				Label: key,
				Value: strings.TrimSpace(textFromLayout(field.GetFieldValue(), doc.GetText())),
			})
		}
	}
	return items
}
