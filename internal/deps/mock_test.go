package deps

import "context"

// mockVCS implements VCS for unit testing.
type mockVCS struct {
	calls               [][]string
	commits             map[string]string
	submoduleUpdateFunc func(ctx context.Context, dir string, paths ...string) error
}

func (m *mockVCS) SubmoduleUpdate(ctx context.Context, dir string, paths ...string) error {
	m.calls = append(m.calls, paths)
	if m.submoduleUpdateFunc != nil {
		return m.submoduleUpdateFunc(ctx, dir, paths...)
	}
	return nil
}

func (m *mockVCS) SubmoduleCommit(ctx context.Context, dir, path string) (string, error) {
	if c, ok := m.commits[path]; ok {
		return c, nil
	}
	return "", errNotSubmodule(path)
}

type errNotSubmodule string

func (e errNotSubmodule) Error() string { return string(e) + " is not a submodule" }
