package system

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"
)

var (
	_ FileSystem      = (*MockFS)(nil)
	_ FileSystem      = (*osFileSystem)(nil)
	_ CommandExecutor = (*MockExecutor)(nil)
	_ CommandExecutor = (*osExecutor)(nil)
)

func TestMockFS_ReadWriteFile(t *testing.T) {
	mockFS := NewMockFS()

	// Write a file
	content := []byte("hello world")
	err := mockFS.WriteFile("/test/file.txt", content, 0644)
	if err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	// Read it back
	data, err := mockFS.ReadFile("/test/file.txt")
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}

	if string(data) != "hello world" {
		t.Errorf("ReadFile = %q, want %q", string(data), "hello world")
	}
}

func TestMockFS_ReadFile_NotExists(t *testing.T) {
	mockFS := NewMockFS()

	_, err := mockFS.ReadFile("/nonexistent")
	if err != fs.ErrNotExist {
		t.Errorf("ReadFile error = %v, want fs.ErrNotExist", err)
	}
}

func TestMockFS_Stat(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.AddFile("/test/file.txt", []byte("content"), 0644)
	mockFS.AddDir("/test/dir")

	// Stat file
	info, err := mockFS.Stat("/test/file.txt")
	if err != nil {
		t.Fatalf("Stat file error: %v", err)
	}
	if info.IsDir() {
		t.Error("File should not be a directory")
	}
	if info.Name() != "file.txt" {
		t.Errorf("Name = %q, want %q", info.Name(), "file.txt")
	}

	// Stat directory
	info, err = mockFS.Stat("/test/dir")
	if err != nil {
		t.Fatalf("Stat dir error: %v", err)
	}
	if !info.IsDir() {
		t.Error("Dir should be a directory")
	}
}

func TestMockFS_Exists(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.AddFile("/file.txt", []byte("x"), 0644)
	mockFS.AddDir("/dir")

	if !mockFS.Exists("/file.txt") {
		t.Error("File should exist")
	}
	if !mockFS.Exists("/dir") {
		t.Error("Dir should exist")
	}
	if mockFS.Exists("/nonexistent") {
		t.Error("Nonexistent should not exist")
	}
}

func TestMockFS_Remove(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.AddFile("/file.txt", []byte("x"), 0644)

	if err := mockFS.Remove("/file.txt"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}

	if mockFS.Exists("/file.txt") {
		t.Error("File should be removed")
	}
}

func TestMockFS_MkdirAll(t *testing.T) {
	mockFS := NewMockFS()

	if err := mockFS.MkdirAll("/a/b/c", 0755); err != nil {
		t.Fatalf("MkdirAll error: %v", err)
	}

	for _, dir := range []string{"/a", "/a/b", "/a/b/c"} {
		info, err := mockFS.Stat(dir)
		if err != nil {
			t.Fatalf("Stat(%s) error: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("%s should be a directory", dir)
		}
	}
}

func TestMockFS_Rename(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.AddFile("/etc/app.conf.tmp", []byte("new"), 0600)
	mockFS.AddFile("/etc/app.conf", []byte("old"), 0644)

	if err := mockFS.Rename("/etc/app.conf.tmp", "/etc/app.conf"); err != nil {
		t.Fatalf("Rename error: %v", err)
	}

	data, ok := mockFS.GetFile("/etc/app.conf")
	if !ok || string(data) != "new" {
		t.Errorf("GetFile = %q, %v, want %q", data, ok, "new")
	}
	if mockFS.Exists("/etc/app.conf.tmp") {
		t.Error("Temp file should be gone after rename")
	}

	if err := mockFS.Rename("/missing", "/x"); err != fs.ErrNotExist {
		t.Errorf("Rename missing error = %v, want fs.ErrNotExist", err)
	}
}

func TestMockFS_ErrorInjection(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.ReadFileErr = fs.ErrPermission

	_, err := mockFS.ReadFile("/anything")
	if err != fs.ErrPermission {
		t.Errorf("ReadFile error = %v, want ErrPermission", err)
	}
}

func TestMockExecutor_Execute(t *testing.T) {
	exec := NewMockExecutor()
	exec.AddResponse("echo", []byte("hello\n"), nil)

	output, err := exec.Execute(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if string(output) != "hello\n" {
		t.Errorf("Output = %q, want %q", string(output), "hello\n")
	}

	// Verify command was recorded
	cmd, ok := exec.LastCommand()
	if !ok {
		t.Fatal("No command recorded")
	}
	if cmd.Name != "echo" {
		t.Errorf("Command name = %q, want %q", cmd.Name, "echo")
	}
}

func TestMockExecutor_DefaultResponse(t *testing.T) {
	exec := NewMockExecutor()
	exec.DefaultResponse = MockResponse{Output: []byte("default"), Err: nil}

	output, err := exec.Execute(context.Background(), "unknown", "command")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if string(output) != "default" {
		t.Errorf("Output = %q, want %q", string(output), "default")
	}
}

func TestMockExecutor_Handler(t *testing.T) {
	exec := NewMockExecutor()
	exec.Handler = func(cmd MockCommand) MockResponse {
		if strings.Contains(cmd.Line(), "install") {
			return MockResponse{Output: []byte("boom"), Err: errors.New("exit status 1")}
		}
		return MockResponse{Output: []byte(cmd.Stdin)}
	}

	if _, err := exec.Execute(context.Background(), "ssh", "host", "sudo python3 setup.py install"); err == nil {
		t.Error("Expected error from handler")
	}

	out, err := exec.ExecuteWithStdin(context.Background(), "payload", "sh", "-c", "cat")
	if err != nil {
		t.Fatalf("ExecuteWithStdin error: %v", err)
	}
	if string(out) != "payload" {
		t.Errorf("Output = %q, want %q", out, "payload")
	}

	recorded := exec.Recorded()
	if len(recorded) != 2 {
		t.Fatalf("Recorded length = %d, want 2", len(recorded))
	}
	if recorded[1].Stdin != "payload" {
		t.Errorf("Stdin = %q, want %q", recorded[1].Stdin, "payload")
	}
	if got := recorded[0].Line(); got != "ssh host sudo python3 setup.py install" {
		t.Errorf("Line() = %q", got)
	}
}

func TestMockExecutor_HandlerHonoursCancellation(t *testing.T) {
	exec := NewMockExecutor()
	exec.Handler = func(MockCommand) MockResponse { return MockResponse{} }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := exec.Execute(ctx, "sleep", "10"); err != context.Canceled {
		t.Errorf("Execute error = %v, want context.Canceled", err)
	}
}

func TestMockExecutor_Reset(t *testing.T) {
	exec := NewMockExecutor()
	exec.Execute(context.Background(), "cmd1")
	exec.Execute(context.Background(), "cmd2")

	if len(exec.Commands) != 2 {
		t.Errorf("Commands length = %d, want 2", len(exec.Commands))
	}

	exec.Reset()

	if len(exec.Commands) != 0 {
		t.Errorf("Commands length after reset = %d, want 0", len(exec.Commands))
	}
}

func TestMockExecutor_OutputKeepsStderrApart(t *testing.T) {
	exec := NewMockExecutor()
	exec.DefaultResponse = MockResponse{Output: []byte("[AGENT]\n"), Stderr: []byte("sudo: unable to resolve host\n")}

	stdout, stderr, err := exec.Output(context.Background(), "ssh", "node1", "cat /etc/x.ini")
	if err != nil {
		t.Fatalf("Output error: %v", err)
	}
	if string(stdout) != "[AGENT]\n" {
		t.Errorf("stdout = %q, want %q", stdout, "[AGENT]\n")
	}
	if string(stderr) != "sudo: unable to resolve host\n" {
		t.Errorf("stderr = %q", stderr)
	}

	combined, _ := exec.Execute(context.Background(), "ssh", "node1", "true")
	if string(combined) != "sudo: unable to resolve host\n[AGENT]\n" {
		t.Errorf("combined = %q", combined)
	}
}
