package gdocai

import (
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"

	"github.com/gardar/cargointake/pkg/doctree"
)

// entityItems converts custom extractor entities into key fields. Entities
// with properties become compound fields (a party such as "importer" with
// "name", "city", ...); nested properties keep their nesting.
func entityItems(doc *documentaipb.Document) []doctree.KeyValue {
	var items []doctree.KeyValue
	for _, entity := range doc.GetEntities() {
		if entity.GetType() == "" {
			continue
		}
		items = append(items, keyValueFromEntity(entity))
	}
	return items
}

func keyValueFromEntity(entity *documentaipb.Document_Entity) doctree.KeyValue {
	kv := doctree.KeyValue{Label: entity.GetType()}
	if len(entity.GetProperties()) == 0 {
		kv.Value = entityText(entity)
		return kv
	}
	for _, prop := range entity.GetProperties() {
		if prop.GetType() == "" {
			continue
		}
		kv.Children = append(kv.Children, keyValueFromEntity(prop))
	}
	return kv
}

// entityText prefers the normalized value (dates, amounts) over the raw
// mention text.
func entityText(entity *documentaipb.Document_Entity) string {
	if nv := entity.GetNormalizedValue().GetText(); nv != "" {
		return nv
	}
	return strings.TrimSpace(entity.GetMentionText())
}
