package kube

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/scheme"
)

var (
	// GroupVersion of the ChessGame resource
	GroupVersion = schema.GroupVersion{Group: "chessd.dev", Version: "v1"}

	SchemeBuilder = &scheme.Builder{GroupVersion: GroupVersion}

	// AddToScheme registers ChessGame and ChessGameList
	AddToScheme = SchemeBuilder.AddToScheme
)

func init() {
	SchemeBuilder.Register(&ChessGame{}, &ChessGameList{})
}

type ChessGameSpec struct {
	ID              string `json:"id"`
	WhitePlayerName string `json:"whitePlayerName"`
	BlackPlayerName string `json:"blackPlayerName"`
	GameType        string `json:"gameType"`
	FEN             string `json:"fen"`
}

// ChessGame is one game, named after the md5 prefix of its id
type ChessGame struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec ChessGameSpec `json:"spec,omitempty"`
}

type ChessGameList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`

	Items []ChessGame `json:"items"`
}

func (in *ChessGame) DeepCopyInto(out *ChessGame) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	out.Spec = in.Spec
}

func (in *ChessGame) DeepCopy() *ChessGame {
	if in == nil {
		return nil
	}
	out := new(ChessGame)
	in.DeepCopyInto(out)
	return out
}

func (in *ChessGame) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

func (in *ChessGameList) DeepCopyInto(out *ChessGameList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]ChessGame, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

func (in *ChessGameList) DeepCopy() *ChessGameList {
	if in == nil {
		return nil
	}
	out := new(ChessGameList)
	in.DeepCopyInto(out)
	return out
}

func (in *ChessGameList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}
