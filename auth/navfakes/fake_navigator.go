package navfakes

import (
	"sync"

	"github.com/jrsteele09/go-judge-client/auth"
)

var _ auth.Navigator = (*FakeNavigator)(nil)

// FakeNavigator records the orchestrator's terminal navigation actions.
type FakeNavigator struct {
	lock sync.Mutex

	LoginCalls   int
	ProviderURLs []string
}

func NewFakeNavigator() *FakeNavigator {
	return &FakeNavigator{}
}

func (n *FakeNavigator) ToLogin() {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.LoginCalls++
}

func (n *FakeNavigator) ToProvider(url string) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.ProviderURLs = append(n.ProviderURLs, url)
}
