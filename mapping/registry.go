package mapping

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/posecap/frame"
)

// Built in profile names.
const (
	ProfileSkeleton         = "skeleton"
	ProfileFace             = "face"
	ProfileSkeletonIdentity = "skeleton_identity"
	ProfileFaceIdentity     = "face_identity"
)

// Registration describes how to build a profile converting Input frames to Output frames.
type Registration struct {
	Input       frame.Kind
	Output      frame.Kind
	Constructor func(name string) *Profile
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Registration{}
)

func init() {
	Register(ProfileSkeleton, Registration{
		Input:  frame.Skeleton,
		Output: frame.Skeleton,
		Constructor: func(name string) *Profile {
			return NewProfile(name, frame.Skeleton, frame.Skeleton, SkeletonGroups)
		},
	})
	Register(ProfileFace, Registration{
		Input:  frame.Face,
		Output: frame.Face,
		Constructor: func(name string) *Profile {
			return NewProfile(name, frame.Face, frame.Face, FaceGroups)
		},
	})
	Register(ProfileSkeletonIdentity, Registration{
		Input:       frame.Skeleton,
		Output:      frame.Skeleton,
		Constructor: func(name string) *Profile { return identity(name, frame.Skeleton) },
	})
	Register(ProfileFaceIdentity, Registration{
		Input:       frame.Face,
		Output:      frame.Face,
		Constructor: func(name string) *Profile { return identity(name, frame.Face) },
	})
}

// Register adds a profile under name. Registering the same name twice panics.
func Register(name string, reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, old := registry[name]; old {
		panic(errors.Errorf("trying to register two mapping profiles with same name %q", name))
	}
	if reg.Constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for mapping profile %q", name))
	}
	registry[name] = reg
}

// Deregister removes a previously registered profile.
func Deregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}

// Lookup returns the registration of a profile.
func Lookup(name string) (Registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[name]
	return reg, ok
}

// New builds a fresh profile by name, checking it accepts frames of the input kind.
func New(name string, input frame.Kind) (*Profile, error) {
	reg, ok := Lookup(name)
	if !ok {
		return nil, errors.Errorf("unknown mapping profile %q, registered profiles are %v", name, Registered())
	}
	if reg.Input != input {
		return nil, errors.Errorf("mapping profile %q maps %s frames, not %s", name, reg.Input, input)
	}
	return reg.Constructor(name), nil
}

// Compatible returns, sorted, the profiles converting input frames into output frames.
func Compatible(input, output frame.Kind) []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	var names []string
	for name, reg := range registry {
		if reg.Input == input && reg.Output == output {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Registered returns every registered profile name, sorted.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Identity returns a profile that copies frames of kind unchanged.
func Identity(kind frame.Kind) *Profile {
	if kind == frame.Face {
		return identity(ProfileFaceIdentity, kind)
	}
	return identity(ProfileSkeletonIdentity, kind)
}

func identity(name string, kind frame.Kind) *Profile {
	return NewProfile(name, kind, kind, GroupTable{})
}

// DefaultFor returns the name of the built in profile for a rig kind.
func DefaultFor(kind frame.Kind) string {
	if kind == frame.Face {
		return ProfileFace
	}
	return ProfileSkeleton
}
