package chunker

import (
	"reflect"
	"testing"

	"articlerag/pkg/models"
)

func TestChunks_Sectioned(t *testing.T) {
	data := models.StructuredData{
		Title: "T",
		Sections: map[string]models.Section{
			"intro": {Heading: "Intro", Text: "first"},
			"body":  {Heading: "Body", Text: "second"},
			"end":   {Text: ""},
		},
	}

	got := Chunks(data)
	want := []models.Chunk{
		{Key: "body", Text: "second"},
		{Key: "end", Text: ""},
		{Key: "intro", Text: "first"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunks() = %v, want %v", got, want)
	}
}

func TestChunks_FlatText(t *testing.T) {
	got := Chunks(models.Flat("Hello world."))
	want := []models.Chunk{{Key: "content", Text: "Hello world."}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunks() = %v, want %v", got, want)
	}
}

func TestChunks_Empty(t *testing.T) {
	if got := Chunks(models.StructuredData{}); len(got) != 0 {
		t.Errorf("Chunks() = %v, want none", got)
	}
}

// Chunking is idempotent: repeated calls over the same data yield the same
// chunk set.
func TestChunks_Deterministic(t *testing.T) {
	data := models.StructuredData{
		Sections: map[string]models.Section{
			"a": {Text: "1"}, "b": {Text: "2"}, "c": {Text: "3"},
			"d": {Text: "4"}, "e": {Text: "5"}, "f": {Text: "6"},
		},
	}

	first := Chunks(data)
	for i := 0; i < 50; i++ {
		if got := Chunks(data); !reflect.DeepEqual(got, first) {
			t.Fatalf("call %d differed: %v vs %v", i, got, first)
		}
	}
}
