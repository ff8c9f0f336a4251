package storage

import "context"

// GetInviteLinks returns the code → inviter userId map, never nil.
func (r *Repository) GetInviteLinks(ctx context.Context) (map[string]string, error) {
	return r.inviteLinks(ctx)
}

// SaveInviteLink records that code was issued by userID. Saving the same pair
// twice is a no-op in effect; a colliding code is overwritten.
func (r *Repository) SaveInviteLink(ctx context.Context, userID, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	links, err := r.inviteLinks(ctx)
	if err != nil {
		return err
	}
	links[code] = userID
	return r.save(ctx, KeyInviteLinks, links)
}

// GetUserByInviteCode resolves code to the userId that issued it.
func (r *Repository) GetUserByInviteCode(ctx context.Context, code string) (string, bool, error) {
	links, err := r.inviteLinks(ctx)
	if err != nil {
		return "", false, err
	}
	userID, ok := links[code]
	return userID, ok, nil
}

func (r *Repository) inviteLinks(ctx context.Context) (map[string]string, error) {
	var links map[string]string
	ok, err := r.load(ctx, KeyInviteLinks, &links)
	if err != nil {
		return nil, err
	}
	if !ok || links == nil {
		links = map[string]string{}
	}
	return links, nil
}
