package language

import "testing"

func Test_DetectLanguage_GoFile(t *testing.T) {
	if lang := DetectLanguage("main.go"); lang != "Go" {
		t.Errorf("expected Go, got %s", lang)
	}
}

func Test_DetectLanguage_Makefile(t *testing.T) {
	if lang := DetectLanguage("build/Makefile"); lang != "Makefile" {
		t.Errorf("expected Makefile, got %s", lang)
	}
}

func Test_DetectLanguage_UnknownExtension(t *testing.T) {
	if lang := DetectLanguage("data.xyz"); lang != "Unknown" {
		t.Errorf("expected Unknown, got %s", lang)
	}
}

func Test_DetectLanguage_CaseInsensitive(t *testing.T) {
	if lang := DetectLanguage("README.MD"); lang != "Markdown" {
		t.Errorf("expected Markdown, got %s", lang)
	}
}

func Test_DetectKind(t *testing.T) {
	cases := map[string]Kind{
		"chart.PNG":   KindImage,
		"report.csv":  KindData,
		"notes.md":    KindDocument,
		"bundle.zip":  KindArchive,
		"main.rs":     KindSource,
		"LICENSE":     KindUnknown,
		"weird.thing": KindUnknown,
	}
	for path, want := range cases {
		if got := DetectKind(path); got != want {
			t.Errorf("DetectKind(%s) = %s, want %s", path, got, want)
		}
	}
	if !IsImage("photo.jpeg") || IsImage("photo.svg") {
		t.Error("IsImage mismatch")
	}
}
