package dicom_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/suyashkumar/dicom/pkg/tag"

	dcm "dicom-redactor/internal/dicom"
	"dicom-redactor/internal/testutil"
)

func TestGetString(t *testing.T) {
	ds := testutil.Dataset("a.dcm",
		testutil.StringElement(t, tag.PatientID, "12345"),
	)

	if got := ds.GetString(tag.PatientID); got != "12345" {
		t.Errorf("GetString = %q", got)
	}
	if got := ds.GetString(tag.PatientName); got != "" {
		t.Errorf("GetString on absent tag = %q, want empty", got)
	}
}

func TestGetByName(t *testing.T) {
	ds := testutil.Dataset("a.dcm",
		testutil.StringElement(t, tag.PatientID, "12345"),
	)

	if v, ok := ds.GetByName("PatientID"); !ok || v != "12345" {
		t.Errorf("GetByName(PatientID) = %q, %v", v, ok)
	}
	if _, ok := ds.GetByName("PatientName"); ok {
		t.Error("GetByName reported an absent element as present")
	}
	if _, ok := ds.GetByName("NoSuchKeyword"); ok {
		t.Error("GetByName resolved an unknown keyword")
	}
}

func TestSetString(t *testing.T) {
	ds := testutil.Dataset("a.dcm",
		testutil.StringElement(t, tag.PatientID, "12345"),
	)

	if err := ds.SetString(tag.PatientID, "NEW"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if got := ds.GetString(tag.PatientID); got != "NEW" {
		t.Errorf("value after SetString = %q", got)
	}

	// Absent tags are not created.
	if err := ds.SetString(tag.PatientName, "X"); err != nil {
		t.Fatalf("SetString on absent tag: %v", err)
	}
	if _, ok := ds.GetByName("PatientName"); ok {
		t.Error("SetString created an element")
	}
}

func TestSetStringKeepsVR(t *testing.T) {
	elem := testutil.StringElement(t, tag.PatientID, "12345")
	ds := testutil.Dataset("a.dcm", elem)

	if err := ds.SetString(tag.PatientID, "NEW"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	replaced, err := ds.Data.FindElementByTag(tag.PatientID)
	if err != nil {
		t.Fatal(err)
	}
	if replaced.RawValueRepresentation != elem.RawValueRepresentation {
		t.Errorf("VR changed from %q to %q",
			elem.RawValueRepresentation, replaced.RawValueRepresentation)
	}
}

func TestClearTag(t *testing.T) {
	ds := testutil.Dataset("a.dcm",
		testutil.StringElement(t, tag.PatientID, "12345"),
	)

	ds.ClearTag(tag.PatientID)
	if got := ds.GetString(tag.PatientID); got != "" {
		t.Errorf("value after ClearTag = %q", got)
	}
}

func TestAddString(t *testing.T) {
	ds := testutil.Dataset("a.dcm",
		testutil.StringElement(t, tag.PatientID, "12345"),
	)

	if err := ds.AddString(tag.BodyPartExamined, "CHEST"); err != nil {
		t.Fatalf("AddString: %v", err)
	}
	if got := ds.GetString(tag.BodyPartExamined); got != "CHEST" {
		t.Errorf("value after AddString = %q", got)
	}

	// Present tags are left unchanged.
	if err := ds.AddString(tag.PatientID, "OTHER"); err != nil {
		t.Fatalf("AddString on present tag: %v", err)
	}
	if got := ds.GetString(tag.PatientID); got != "12345" {
		t.Errorf("AddString replaced an existing value: %q", got)
	}
}

func TestEnumerate(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a", "1.dcm"))
	touch(t, filepath.Join(root, "a", "notes.txt"))
	touch(t, filepath.Join(root, "b", "c", "2.dcm"))
	touch(t, filepath.Join(root, "3.dcm"))

	files, err := dcm.Enumerate(root, "*.dcm")
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}

	want := []string{
		filepath.Join(root, "3.dcm"),
		filepath.Join(root, "a", "1.dcm"),
		filepath.Join(root, "b", "c", "2.dcm"),
	}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestEnumerateDir(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "1.dcm"))
	touch(t, filepath.Join(root, "sub", "2.dcm"))

	files, err := dcm.EnumerateDir(root, "*.dcm")
	if err != nil {
		t.Fatalf("EnumerateDir: %v", err)
	}
	if len(files) != 1 || files[0] != filepath.Join(root, "1.dcm") {
		t.Errorf("files = %v, want only the top-level file", files)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}
