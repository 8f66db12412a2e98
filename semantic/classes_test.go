package semantic

import (
	"testing"

	"go.viam.com/test"
)

func TestNewClassSet(t *testing.T) {
	set, err := NewClassSet(
		[]string{"ceiling", "floor", "wall"},
		[]string{"#aec7e8", "#708090", "#98df8a"},
	)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, set.Count(), test.ShouldEqual, 3)
	test.That(t, set.Names(), test.ShouldResemble, []string{"ceiling", "floor", "wall"})

	name, err := set.Name(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, name, test.ShouldEqual, "floor")

	id, ok := set.ID("wall")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, id, test.ShouldEqual, 2)
	_, ok = set.ID("lamp")
	test.That(t, ok, test.ShouldBeFalse)

	c, err := set.Color(0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.R, test.ShouldEqual, 0xae)
	test.That(t, c.G, test.ShouldEqual, 0xc7)
	test.That(t, c.B, test.ShouldEqual, 0xe8)

	_, err = set.Name(3)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = set.Color(-1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewClassSetErrors(t *testing.T) {
	_, err := NewClassSet(nil, nil)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewClassSet([]string{"a", "b"}, []string{"#ffffff"})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewClassSet([]string{"a", "a"}, []string{"#ffffff", "#000000"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "duplicate")

	_, err = NewClassSet([]string{"a"}, []string{"chartreuse"})
	test.That(t, err, test.ShouldNotBeNil)
}
