package scene

import (
	"fmt"
	"strings"
)

// AssetAnimation is how an asset enters the scene.
type AssetAnimation string

const (
	AnimNone     AssetAnimation = "none"
	AnimFade     AssetAnimation = "fade"
	AnimZoom     AssetAnimation = "zoom"
	AnimSlide    AssetAnimation = "slide"
	AnimPop      AssetAnimation = "pop"
	AnimHandDraw AssetAnimation = "hand_draw"
)

// AssetAnimations lists every asset animation kind.
var AssetAnimations = []AssetAnimation{AnimNone, AnimFade, AnimZoom, AnimSlide, AnimPop, AnimHandDraw}

// TextAnimation is how the narration text is revealed.
type TextAnimation string

const (
	TextFade     TextAnimation = "fade"
	TextHandDraw TextAnimation = "hand_draw"
)

// TransitionKind is how a scene hands over to the next one.
type TransitionKind string

const (
	TransitionNone  TransitionKind = "none"
	TransitionFade  TransitionKind = "fade"
	TransitionSlide TransitionKind = "slide"
	TransitionZoom  TransitionKind = "zoom"
	TransitionWipe  TransitionKind = "wipe"
)

// TransitionKinds lists every transition kind.
var TransitionKinds = []TransitionKind{TransitionNone, TransitionFade, TransitionSlide, TransitionZoom, TransitionWipe}

func normalizeKind(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}

// ParseAssetAnimation validates an asset animation name; empty means none.
func ParseAssetAnimation(s string) (AssetAnimation, error) {
	k := AssetAnimation(normalizeKind(s))
	if k == "" {
		return AnimNone, nil
	}
	for _, v := range AssetAnimations {
		if v == k {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown asset animation %q", s)
}

// ParseTextAnimation validates a text animation name; empty means fade.
func ParseTextAnimation(s string) (TextAnimation, error) {
	switch k := TextAnimation(normalizeKind(s)); k {
	case "":
		return TextFade, nil
	case TextFade, TextHandDraw:
		return k, nil
	}
	return "", fmt.Errorf("unknown text animation %q", s)
}

// ParseTransitionKind validates a transition name; empty means none.
func ParseTransitionKind(s string) (TransitionKind, error) {
	k := TransitionKind(normalizeKind(s))
	if k == "" {
		return TransitionNone, nil
	}
	for _, v := range TransitionKinds {
		if v == k {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown transition %q", s)
}

func (k *AssetAnimation) UnmarshalText(b []byte) error {
	v, err := ParseAssetAnimation(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func (k *TextAnimation) UnmarshalText(b []byte) error {
	v, err := ParseTextAnimation(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func (k *TransitionKind) UnmarshalText(b []byte) error {
	v, err := ParseTransitionKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
