package sqlinline

const QSelectPendingPreviews = `--sql b84f41e4-5117-4a4f-ae9b-d7979f61057c
select id, display_name, category, prompt_text, quality_score, preview_image_url, fourk_image_url, created_at
from prompt_templates
where preview_image_url is null
  and deleted_at is null
order by created_at
limit nullif($1::int, 0);
`

const QSetPreviewURL = `--sql 098cda21-962e-4e9a-bce0-ecacdbb1d1a4
update prompt_templates
set preview_image_url = $2::text, updated_at = now()
where id = $1::uuid;
`

const QSelectForUpscale = `--sql 8eb290bb-f5f5-4e1f-bcda-5160d9ed7a8b
select id, display_name, category, prompt_text, quality_score, preview_image_url, fourk_image_url, created_at
from prompt_templates
where fourk_image_url is null
  and preview_image_url is not null
  and deleted_at is null
order by quality_score desc, created_at
limit nullif($1::int, 0);
`

const QSetFourKURL = `--sql a3924861-f1cc-45fa-ac64-3911b8d8d03f
update prompt_templates
set fourk_image_url = $2::text, updated_at = now()
where id = $1::uuid;
`

const QSelectTopQuality = `--sql 84fc0446-06c5-48d5-a16a-d6130fbca8f8
select id, display_name, category, prompt_text, quality_score, preview_image_url, fourk_image_url, created_at
from prompt_templates
where preview_image_url is not null
  and deleted_at is null
order by quality_score desc, created_at
limit nullif($1::int, 0);
`

const QCountByCategory = `--sql 5f1d2b61-76be-4f5a-91a4-2b7f28f2f9ce
select category, count(*)
from prompt_templates
where deleted_at is null
group by category;
`

const QInsertTemplate = `--sql c7fcaaa3-be78-4e7e-b2e9-1707889c68e4
insert into prompt_templates(id, display_name, category, prompt_text, quality_score, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, $3::text, $4::float8, now(), now())
returning id;
`

const QCountPendingPreviews = `--sql 45ded1a6-ffbc-4c4c-8f30-9e1e44e2e005
select count(*)
from prompt_templates
where preview_image_url is null
  and deleted_at is null;
`
