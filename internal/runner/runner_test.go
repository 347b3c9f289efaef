package runner

import (
	"bufio"
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_streamsLines(t *testing.T) {
	requireSh(t)
	r := NewExecRunner(10 * time.Second)
	var lines []string
	code, err := r.Run(context.Background(), "sh", []string{"-c", "printf 'one\\ntwo\\n\\nthree'"}, func(l string) {
		lines = append(lines, l)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	want := []string{"one", "two", "", "three"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestExecRunner_nonZeroExit(t *testing.T) {
	requireSh(t)
	r := NewExecRunner(10 * time.Second)
	code, err := r.Run(context.Background(), "sh", []string{"-c", "echo partial; exit 3"}, nil)
	if err != nil {
		t.Fatalf("non-zero exit should not be an error: %v", err)
	}
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
}

func TestExecRunner_missingBinary(t *testing.T) {
	r := NewExecRunner(time.Second)
	_, err := r.Run(context.Background(), "folio-definitely-not-installed-tool", nil, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestExecRunner_missingAbsolutePath(t *testing.T) {
	r := NewExecRunner(time.Second)
	_, err := r.Run(context.Background(), "/nonexistent/dir/pdftotext", nil, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestExecRunner_timeout(t *testing.T) {
	requireSh(t)
	r := NewExecRunner(100 * time.Millisecond)
	start := time.Now()
	_, err := r.Run(context.Background(), "sh", []string{"-c", "exec sleep 5"}, nil)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if time.Since(start) > 4*time.Second {
		t.Error("timed out command should be killed promptly")
	}
}

func TestExecRunner_parentCancelled(t *testing.T) {
	requireSh(t)
	r := NewExecRunner(0)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := r.Run(ctx, "sh", []string{"-c", "exec sleep 5"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestExecRunner_overlongLineDoesNotHang(t *testing.T) {
	requireSh(t)
	r := NewExecRunner(0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	script := `head -c 5000000 /dev/zero | tr '\0' a; echo; head -c 1000000 /dev/zero`
	start := time.Now()
	_, err := r.Run(ctx, "sh", []string{"-c", script}, nil)
	if ctx.Err() != nil {
		t.Fatalf("Run blocked until the deadline (%s)", time.Since(start))
	}
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Errorf("err = %v, want bufio.ErrTooLong", err)
	}
}
