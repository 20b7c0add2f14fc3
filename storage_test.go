package widetolong

import "testing"

func TestSplitGoogleStoragePath(t *testing.T) {
	bucket, object, err := SplitGoogleStoragePath("gs://my-bucket/runs/2024/wide.tsv.gz")
	if err != nil {
		t.Fatal(err)
	}
	if bucket != "my-bucket" || object != "runs/2024/wide.tsv.gz" {
		t.Errorf("got bucket %q object %q", bucket, object)
	}

	for _, bad := range []string{"gs://my-bucket", "gs://my-bucket/", "gs:///wide.tsv"} {
		if _, _, err := SplitGoogleStoragePath(bad); err == nil {
			t.Errorf("%s: expected an error", bad)
		}
	}
}

func TestIsGoogleStoragePath(t *testing.T) {
	if !IsGoogleStoragePath("gs://bucket/object") {
		t.Error("gs:// path not recognized")
	}
	if IsGoogleStoragePath("/data/gs://bucket") || IsGoogleStoragePath("-") {
		t.Error("local path taken for gs://")
	}
}
