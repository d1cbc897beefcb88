package offices

import (
	"context"

	"deskhub/internal/app/dto"
	"deskhub/internal/app/uow"
	domainoffices "deskhub/internal/domain/offices"
	domaintags "deskhub/internal/domain/tags"
	domainusers "deskhub/internal/domain/users"
)

// attachResources maps offices to wire resources with owner, tags and
// active-reservation counts eagerly attached, regardless of the filters the
// query ran with.
func attachResources(ctx context.Context, unit uow.UnitOfWork, items []*domainoffices.Office) ([]dto.OfficeResource, error) {
	if len(items) == 0 {
		return []dto.OfficeResource{}, nil
	}

	officeIDs := make([]domainoffices.OfficeID, 0, len(items))
	ownerIDs := make([]domainusers.UserID, 0, len(items))
	tagIDSet := make(map[domaintags.TagID]struct{})
	for _, office := range items {
		officeIDs = append(officeIDs, office.ID)
		ownerIDs = append(ownerIDs, office.Owner)
		for _, id := range office.TagIDs {
			tagIDSet[id] = struct{}{}
		}
	}

	owners, err := unit.Users().ByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}

	tagIDs := make([]domaintags.TagID, 0, len(tagIDSet))
	for id := range tagIDSet {
		tagIDs = append(tagIDs, id)
	}
	tagList, err := unit.Tags().ByIDs(ctx, tagIDs)
	if err != nil {
		return nil, err
	}
	tagsByID := make(map[domaintags.TagID]*domaintags.Tag, len(tagList))
	for _, tag := range tagList {
		tagsByID[tag.ID] = tag
	}

	counts, err := unit.Reservations().CountActive(ctx, officeIDs)
	if err != nil {
		return nil, err
	}

	resources := make([]dto.OfficeResource, 0, len(items))
	for _, office := range items {
		officeTags := make([]*domaintags.Tag, 0, len(office.TagIDs))
		for _, id := range office.TagIDs {
			if tag, ok := tagsByID[id]; ok {
				officeTags = append(officeTags, tag)
			}
		}
		resources = append(resources, dto.MapOfficeResource(office, owners[office.Owner], officeTags, counts[office.ID]))
	}
	return resources, nil
}

// attachOne is the single-resource variant used by show, create and update.
func attachOne(ctx context.Context, unit uow.UnitOfWork, office *domainoffices.Office) (dto.OfficeResource, error) {
	resources, err := attachResources(ctx, unit, []*domainoffices.Office{office})
	if err != nil {
		return dto.OfficeResource{}, err
	}
	return resources[0], nil
}
