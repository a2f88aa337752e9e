package terraform

import (
	"os"
	"path/filepath"
	"testing"
)

const mainTF = `
resource "google_compute_instance" "web" {
  machine_type = "n1-standard-1"
  zone         = "us-central1-a"

  labels = {
    env = "prod"
  }
}

resource "google_storage_bucket" "assets" {
  name     = "assets-bucket"
  location = "US"
}

variable "project" {
  type = string
}
`

const networkTF = `
resource "google_compute_firewall" "allow_ssh" {
  name    = "allow-ssh"
  network = "default"

  allow {
    protocol = "tcp"
    ports    = ["22"]
  }
}
`

func writeTF(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	writeTF(t, dir, "main.tf", mainTF)
	writeTF(t, dir, "network.tf", networkTF)
	writeTF(t, dir, "README.md", "not terraform")

	state, err := ScanDir(dir)
	if err != nil {
		t.Fatalf("ScanDir() error = %v", err)
	}
	if len(state.Errors) != 0 {
		t.Errorf("ScanDir() parse errors = %v", state.Errors)
	}

	if state.ResourceCount != 3 {
		t.Fatalf("ResourceCount = %d, want 3", state.ResourceCount)
	}
	for _, addr := range []string{
		"google_compute_instance.web",
		"google_storage_bucket.assets",
		"google_compute_firewall.allow_ssh",
	} {
		if _, ok := state.Resources[addr]; !ok {
			t.Errorf("Resources missing %s: %v", addr, state.Resources)
		}
	}
	if state.StateHash == "" {
		t.Error("StateHash empty")
	}
}

func TestScanDir_HashStability(t *testing.T) {
	dirA := t.TempDir()
	writeTF(t, dirA, "main.tf", mainTF)
	writeTF(t, dirA, "network.tf", networkTF)

	// same declarations split across files differently
	dirB := t.TempDir()
	writeTF(t, dirB, "everything.tf", mainTF+networkTF)

	a, err := ScanDir(dirA)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ScanDir(dirB)
	if err != nil {
		t.Fatal(err)
	}

	if a.StateHash != b.StateHash {
		t.Error("StateHash depends on file layout")
	}
}

func TestScanDir_HashChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	writeTF(t, dir, "main.tf", mainTF)

	before, err := ScanDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	changed := `
resource "google_compute_instance" "web" {
  machine_type = "n1-standard-2"
  zone         = "us-central1-a"
}

resource "google_storage_bucket" "assets" {
  name     = "assets-bucket"
  location = "US"
}
`
	writeTF(t, dir, "main.tf", changed)

	after, err := ScanDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	if before.StateHash == after.StateHash {
		t.Error("StateHash unchanged after resource edit")
	}
}

func TestScanDir_ParseErrorsAreCollected(t *testing.T) {
	dir := t.TempDir()
	writeTF(t, dir, "good.tf", networkTF)
	writeTF(t, dir, "broken.tf", `resource "google_compute_instance" {{{`)

	state, err := ScanDir(dir)
	if err != nil {
		t.Fatalf("ScanDir() error = %v, want per-file errors only", err)
	}
	if len(state.Errors) != 1 {
		t.Errorf("Errors = %v, want 1 parse failure", state.Errors)
	}
	if state.ResourceCount != 1 {
		t.Errorf("ResourceCount = %d, want the parseable file's 1", state.ResourceCount)
	}
}

func TestScanDir_MissingDirectory(t *testing.T) {
	if _, err := ScanDir("/does/not/exist"); err == nil {
		t.Error("ScanDir() on missing directory succeeded")
	}
}
