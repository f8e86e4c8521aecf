// Package kube stores game records as ChessGame custom resources.
package kube

import (
	"context"
	"fmt"
	"sort"

	"chessd/internal/server/storage"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/config"
)

var _ storage.GameStore = (*Store)(nil)

// Store keeps one ChessGame per game in a single namespace
type Store struct {
	client    client.Client
	namespace string
}

// NewScheme returns a runtime.Scheme with the ChessGame types registered.
func NewScheme() (*runtime.Scheme, error) {
	s := runtime.NewScheme()
	if err := AddToScheme(s); err != nil {
		return nil, fmt.Errorf("register chessgame types: %w", err)
	}
	return s, nil
}

func NewStore(c client.Client, namespace string) *Store {
	return &Store{client: c, namespace: namespace}
}

// NewInCluster builds a client from the in-cluster service account, or
// KUBECONFIG when running outside a cluster
func NewInCluster(namespace string) (*Store, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("kubernetes config: %w", err)
	}
	s, err := NewScheme()
	if err != nil {
		return nil, err
	}
	c, err := client.New(cfg, client.Options{Scheme: s})
	if err != nil {
		return nil, fmt.Errorf("kubernetes client: %w", err)
	}
	return NewStore(c, namespace), nil
}

func (s *Store) key(id string) client.ObjectKey {
	return client.ObjectKey{Namespace: s.namespace, Name: storage.ResourceName(id)}
}

func (s *Store) Create(ctx context.Context, rec storage.GameRecord) error {
	game := &ChessGame{
		ObjectMeta: metav1.ObjectMeta{
			Name:      storage.ResourceName(rec.ID),
			Namespace: s.namespace,
		},
		Spec: ChessGameSpec{
			ID:              rec.ID,
			WhitePlayerName: rec.WhitePlayerName,
			BlackPlayerName: rec.BlackPlayerName,
			GameType:        rec.GameType,
			FEN:             rec.FEN,
		},
	}
	if err := s.client.Create(ctx, game); err != nil {
		if apierrors.IsAlreadyExists(err) {
			return fmt.Errorf("%s: %w", game.Name, storage.ErrGameExists)
		}
		return fmt.Errorf("create %s: %w", game.Name, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (storage.GameRecord, error) {
	game, err := s.get(ctx, id)
	if err != nil {
		return storage.GameRecord{}, err
	}
	return toRecord(game), nil
}

func (s *Store) get(ctx context.Context, id string) (*ChessGame, error) {
	game := &ChessGame{}
	key := s.key(id)
	if err := s.client.Get(ctx, key, game); err != nil {
		return nil, mapErr("get", key.Name, err)
	}
	return game, nil
}

// List returns every game in the namespace, newest first
func (s *Store) List(ctx context.Context) ([]storage.GameRecord, error) {
	var list ChessGameList
	if err := s.client.List(ctx, &list, client.InNamespace(s.namespace)); err != nil {
		return nil, fmt.Errorf("list chessgames: %w", err)
	}

	games := make([]storage.GameRecord, 0, len(list.Items))
	for i := range list.Items {
		games = append(games, toRecord(&list.Items[i]))
	}
	sort.SliceStable(games, func(i, j int) bool {
		return games[i].CreatedAt.After(games[j].CreatedAt)
	})
	return games, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	game := &ChessGame{
		ObjectMeta: metav1.ObjectMeta{
			Name:      storage.ResourceName(id),
			Namespace: s.namespace,
		},
	}
	if err := s.client.Delete(ctx, game); err != nil {
		return mapErr("delete", game.Name, err)
	}
	return nil
}

// SetFEN merge-patches spec.fen
func (s *Store) SetFEN(ctx context.Context, id, fen string) error {
	game, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	patch := client.MergeFrom(game.DeepCopy())
	game.Spec.FEN = fen
	if err := s.client.Patch(ctx, game, patch); err != nil {
		return mapErr("patch", game.Name, err)
	}
	return nil
}

func mapErr(op, name string, err error) error {
	if apierrors.IsNotFound(err) {
		return fmt.Errorf("%s: %w", name, storage.ErrGameNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, name, err)
}

func toRecord(game *ChessGame) storage.GameRecord {
	return storage.GameRecord{
		ID:              game.Spec.ID,
		WhitePlayerName: game.Spec.WhitePlayerName,
		BlackPlayerName: game.Spec.BlackPlayerName,
		GameType:        game.Spec.GameType,
		FEN:             game.Spec.FEN,
		CreatedAt:       game.CreationTimestamp.Time,
	}
}
