package usecase

import (
	"context"
	"net/http"
	"strings"

	"app/internal/domain/model"
	"app/internal/repository"
	repo "app/internal/repository"

	"github.com/lib/pq"
)

type ReviewUsecase struct {
	tx    repo.TransactionManager
	users repository.UserRepository
	clock Clock
}

func NewReviewUsecase(tx repo.TransactionManager, users repository.UserRepository, clock Clock) *ReviewUsecase {
	return &ReviewUsecase{tx: tx, users: users, clock: clock}
}

type SubmitReviewInput struct {
	Rating  int
	Comment string
	Images  []string
}

// SubmitReview はレビュー投稿。
// 該当商品を含むDelivered注文を持つユーザーだけが投稿できる。
// 1ユーザー1商品1件で、再投稿はuser_idをキーに上書きする。
// 投稿後に平均評価と件数を同一トランザクションで再計算する。
func (u *ReviewUsecase) SubmitReview(ctx context.Context, userID int64, productID int64, in SubmitReviewInput) (model.Review, error) {
	if userID <= 0 {
		return model.Review{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return model.Review{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return model.Review{}, NewHTTPError(http.StatusBadRequest, "rating must be 1-5")
	}
	if len(in.Images) > 5 {
		return model.Review{}, NewHTTPError(http.StatusBadRequest, "too many images")
	}

	//表示名はユーザーから引く
	user, err := u.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return model.Review{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	now := u.clock.Now()
	var out model.Review

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Products().FindByID(ctx, productID); err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "product not found")
		} else if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//配達済み注文を持つかの資格チェック
		eligible, err := r.Orders().HasDeliveredWithProduct(ctx, userID, productID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !eligible {
			return NewHTTPError(http.StatusForbidden, "only buyers with a delivered order can review")
		}

		existing, err := r.Reviews().FindByProductAndUser(ctx, productID, userID)
		switch err {
		case nil:
			//上書き
			existing.Author = user.Name
			existing.Rating = in.Rating
			existing.Comment = strings.TrimSpace(in.Comment)
			existing.Images = pq.StringArray(in.Images)
			if err := r.Reviews().Update(ctx, existing); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			out = existing
		case repo.ErrNotFound:
			created, err := r.Reviews().Create(ctx, model.Review{
				ProductID: productID,
				UserID:    userID,
				Author:    user.Name,
				Rating:    in.Rating,
				Comment:   strings.TrimSpace(in.Comment),
				Images:    pq.StringArray(in.Images),
				CreatedAt: now,
				UpdatedAt: now,
			})
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			out = created
		default:
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//平均と件数を再計算して商品へ反映
		avg, count, err := r.Reviews().AggregateByProductID(ctx, productID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Products().SetRating(ctx, productID, avg, count); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return nil
	})

	if err != nil {
		return model.Review{}, err
	}
	return out, nil
}

type ReviewListOutput struct {
	Items []model.Review `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

func (u *ReviewUsecase) ListReviews(ctx context.Context, productID int64, page int, limit int) (ReviewListOutput, error) {
	if productID <= 0 {
		return ReviewListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if page < 1 {
		return ReviewListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return ReviewListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var out ReviewListOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Reviews().ListByProductID(ctx, productID, page, limit)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = ReviewListOutput{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})

	if err != nil {
		return ReviewListOutput{}, err
	}
	return out, nil
}
